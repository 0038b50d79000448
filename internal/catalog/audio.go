package catalog

import (
	"path"

	"github.com/example/kingdom-assetgen/internal/workflow"
)

const worldMapAudioDir = "Assets/Resources/Audio/WorldMap"

// WorldMapAudio destinations carry no extension: the file keeps whatever
// container the server produced, .mp3 when it reports none.
func WorldMapAudio() Category {
	return Category{
		Name:       "worldmap-audio",
		Kind:       KindAudio,
		DefaultExt: ".mp3",
		Assets: []Asset{
			{
				Name:     "WorldMap_BGM",
				Dest:     path.Join(worldMapAudioDir, "WorldMap_BGM"),
				Template: workflow.TemplateBGM,
				Prompt: "fantasy world map background music, kingdom rush inspired, " +
					"bright orchestral, playful medieval, no vocals, loop friendly",
				Duration: 24,
				CFG:      6.5,
			},
			{
				Name:     "WorldMap_Click",
				Dest:     path.Join(worldMapAudioDir, "WorldMap_Click"),
				Template: workflow.TemplateSFX,
				Prompt:   "short fantasy ui click sound, wood and metal texture, crisp transient, no voice",
				Duration: 2,
				CFG:      7.0,
			},
		},
	}
}
