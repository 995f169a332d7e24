package intent

import "testing"

func TestIsJournalingIntent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			"question about the journal feature still counts",
			"qu'est-ce que le journal",
			true,
		},
		{
			"generic feature question excluded",
			"quelles sont mes tâches",
			false,
		},
		{
			"explain question excluded",
			"explique comment créer une habitude",
			false,
		},
		{
			"show-me question excluded",
			"montre-moi mes statistiques",
			false,
		},
		{
			"explicit journal keyword",
			"je veux écrire dans mon journal",
			true,
		},
		{
			"day recap keyword",
			"voici le bilan de ma journée",
			true,
		},
		{
			"rating plus day indicator",
			"aujourd'hui c'était un 7/10",
			true,
		},
		{
			"note-style rating plus day indicator",
			"note de 8 pour ce soir",
			true,
		},
		{
			"rating without day narrative",
			"je mets 7/10 à ce film",
			false,
		},
		{
			"two day indicators",
			"aujourd'hui j'ai été productif, ce soir je suis content",
			true,
		},
		{
			"single day indicator only",
			"aujourd'hui il pleut",
			false,
		},
		{
			"unrelated message",
			"commence une session deep work",
			false,
		},
		{
			"empty message",
			"",
			false,
		},
		{
			"abbreviated day indicator expands before matching",
			"auj j'ai bien bossé et ce soir je sors",
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsJournalingIntent(tt.text); got != tt.want {
				t.Errorf("IsJournalingIntent(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
