package agent

import (
	"context"
	"regexp"
	"strings"
)

// Help runs before the other handlers so a "comment faire une tâche ?"
// never turns into a task creation.
var helpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)comment\s+(je\s+)?(peux|puis)[\s-]?(je)?\s+faire`),
	regexp.MustCompile(`(?i)comment\s+faire\s+pour`),
	regexp.MustCompile(`(?i)comment\s+(procéder|proceder|réaliser|realiser|accomplir|effectuer)`),
	regexp.MustCompile(`(?i)(explique|explique[\s-]?moi)\s+(le\s+)?(processus|process|comment)`),
	regexp.MustCompile(`(?i)(je\s+)?(ne\s+)?sais\s+pas\s+comment`),
	regexp.MustCompile(`(?i)(je\s+)?(ne\s+)?comprends?\s+pas`),
	regexp.MustCompile(`(?i)aide[\s-]?moi`),
	regexp.MustCompile(`(?i)peux[\s-]?tu\s+m'?aider`),
}

var helpKeywords = []string{
	"comment faire", "comment je peux", "comment puis-je", "comment puis je",
	"processus", "étapes", "procédure",
	"aide-moi", "aide moi", "guide-moi", "tutoriel", "méthode",
	"je ne sais pas comment", "je sais pas comment",
	"je comprends pas", "je comprend pas",
}

const helpReply = `🤔 Je suis là pour t'aider ! Voici ce que je peux faire :

🚀 *Deep Work* : "je commence à travailler" pour lancer une session de concentration
📋 *Planification* : "planifie demain" pour organiser ta journée
📝 *Journal* : "note de ma journée" pour raconter ta journée, "résumé du journal" pour la relire
📊 *Suivi* : "analyse" ou "tendances" pour ton bilan comportemental
💪 *Habitudes* : "mes habitudes" pour voir où tu en es

Dis-moi simplement ce que tu veux faire !`

// HelpHandler answers guidance requests with the feature overview.
type HelpHandler struct {
	messenger Messenger
}

// NewHelpHandler creates the help handler.
func NewHelpHandler(messenger Messenger) *HelpHandler {
	return &HelpHandler{messenger: messenger}
}

// Handle replies with the help overview when the message asks for guidance.
func (h *HelpHandler) Handle(ctx context.Context, user User, message string) (bool, error) {
	if !isHelpRequest(message) {
		return false, nil
	}
	return true, h.messenger.SendText(ctx, user.Phone, helpReply)
}

func isHelpRequest(message string) bool {
	for _, pattern := range helpPatterns {
		if pattern.MatchString(message) {
			return true
		}
	}

	lower := strings.ToLower(message)
	for _, keyword := range helpKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return lower == "aide" || lower == "help" || lower == "?"
}
