// Package catalog holds the default story catalog seeded on first boot.
package catalog

import "github.com/nshaw/storydrip/internal/domain"

// Default returns the built-in story: three night stages unlocking through
// the evening, three morning stages the next day. Offsets are minutes after
// signup.
func Default() []domain.StageSeed {
	return []domain.StageSeed{
		{
			Definition: domain.StageDefinition{
				Slug:                "night-1",
				Label:               "Dusk",
				DayPart:             domain.DayPartNight,
				UnlockOffsetMinutes: 0,
				OrderIndex:          1,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.storydrip.example/video/night-1.mp4",
				ImageURL:    "https://cdn.storydrip.example/img/night-1.jpg",
				MessageText: "The story begins tonight, {{name}}.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug:                "night-2",
				Label:               "Midnight",
				DayPart:             domain.DayPartNight,
				UnlockOffsetMinutes: 90,
				OrderIndex:          2,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.storydrip.example/video/night-2.mp4",
				ImageURL:    "https://cdn.storydrip.example/img/night-2.jpg",
				MessageText: "While the city sleeps, something stirs.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug:                "night-3",
				Label:               "The Small Hours",
				DayPart:             domain.DayPartNight,
				UnlockOffsetMinutes: 180,
				OrderIndex:          3,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.storydrip.example/video/night-3.mp4",
				ImageURL:    "https://cdn.storydrip.example/img/night-3.jpg",
				MessageText: "Almost there. Keep your eyes closed.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug:                "morning-1",
				Label:               "First Light",
				DayPart:             domain.DayPartMorning,
				UnlockOffsetMinutes: 360,
				OrderIndex:          4,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.storydrip.example/video/morning-1.mp4",
				ImageURL:    "https://cdn.storydrip.example/img/morning-1.jpg",
				MessageText: "Good morning, {{name}}. Look what the night left behind.",
			},
		},
		{
			Definition: domain.StageDefinition{
				Slug:                "morning-2",
				Label:               "Sunrise",
				DayPart:             domain.DayPartMorning,
				UnlockOffsetMinutes: 420,
				OrderIndex:          5,
			},
			Content: domain.StageContent{
				VideoURL:    "https://cdn.storydrip.example/video/morning-2.mp4",
				ImageURL:    "https://cdn.storydrip.example/img/morning-2.jpg",
				MessageText: "The ending is yours to open.",
			},
		},
	}
}
