package catalog

import (
	"fmt"
	"path"
)

const (
	titleDir      = "Assets/Resources/UI/Title"
	heroesDir     = "Assets/Resources/UI/Sprites/Heroes"
	worldMapDir   = "Assets/Resources/UI/Sprites/WorldMap"
	stagePopupDir = worldMapDir + "/StageInfoPopup"
)

// SD1.5 cannot render lettering, so logos and buttons are generated as bare
// frames and the engine draws the text.
func Title() Category {
	return Category{
		Name:       "title",
		Kind:       KindImage,
		Sampling:   imageSampling(20, 8),
		DefaultExt: ".png",
		Assets: []Asset{
			{
				Name:  "Title_Background",
				Dest:  path.Join(titleDir, "Title_Background.png"),
				Width: 768, Height: 512,
				Prompt: "fantasy medieval kingdom panorama, kingdom rush style, hand painted, " +
					"vibrant colors, 2d game art, rolling green hills, stone castle in distance, " +
					"blue sky with fluffy clouds, colorful towers, bright sunny day, cartoon style",
				Negative: "text, letters, words, watermark, low quality, 3d render, photorealistic, dark, gloomy, realistic",
			},
			{
				Name:  "Title_Logo",
				Dest:  path.Join(titleDir, "Title_Logo.png"),
				Width: 512, Height: 512,
				Prompt: "medieval fantasy shield emblem, golden ornate frame, royal crest, " +
					"kingdom coat of arms, crossed swords, crown on top, " +
					"hand painted game art style, centered, symmetrical, " +
					"isolated on solid black background, no text, no letters, no words",
				Negative: "text, letters, words, writing, font, typography, " +
					"low quality, blurry, asymmetric, complex background, people, realistic",
				PostProcess: true,
			},
			{
				Name:  "Title_BtnStart",
				Dest:  path.Join(titleDir, "Title_BtnStart.png"),
				Width: 512, Height: 256,
				Prompt: "wooden game ui button frame, fantasy style, horizontal rectangle, " +
					"wood plank texture, metal rivets on corners, carved wood border, " +
					"empty center, no text, no letters, no words, " +
					"hand painted game art, isolated on solid black background",
				Negative: "text, letters, words, writing, circle, round, " +
					"low quality, complex background, realistic, people",
				PostProcess: true,
			},
		},
	}
}

const (
	HeroID = "DefaultHero"

	heroPromptBase = "kingdom rush style, stylized 2d game character, fantasy knight hero, " +
		"clear silhouette, bold outline, flat vibrant colors, readable at small size, transparent background"
	heroNegative = "photorealistic, realistic skin, 3d render, blurry, watermark, logo, text, " +
		"deformed anatomy, extra limbs, cluttered background"
)

// HeroAction is one animation of the in-game sprite sheet.
type HeroAction struct {
	Name   string
	Pose   string
	Frames int
}

// HeroActions is kept small for a first pass; raise frame counts after
// visual QA.
var HeroActions = []HeroAction{
	{Name: "idle", Pose: "top-down 3/4 idle stance, subtle breathing pose variation", Frames: 4},
	{Name: "walk", Pose: "top-down 3/4 walking pose, forward movement cycle frame", Frames: 4},
	{Name: "attack", Pose: "top-down 3/4 sword slash attack pose, clear combat action", Frames: 4},
	{Name: "die", Pose: "top-down 3/4 death/fall pose frame, readable collapse motion", Frames: 4},
}

func Hero() Category {
	inGame := path.Join(heroesDir, "InGame")
	assets := []Asset{
		{
			Name:  HeroID + "_portrait",
			Dest:  path.Join(heroesDir, "Portraits", HeroID+".png"),
			Width: 1024, Height: 1024,
			Prompt: heroPromptBase + ", hero portrait icon, bust shot, centered composition, " +
				"armor details readable, ui portrait, no background",
			Negative: heroNegative,
		},
		{
			Name:  HeroID + "_single",
			Dest:  path.Join(inGame, HeroID+".png"),
			Width: 512, Height: 512,
			Prompt: heroPromptBase + ", top-down 3/4 full body hero idle stance, " +
				"gameplay sprite, no weapon motion blur",
			Negative: heroNegative,
		},
	}
	for _, a := range HeroActions {
		for i := 0; i < a.Frames; i++ {
			frame := fmt.Sprintf("%s_%02d", a.Name, i)
			assets = append(assets, Asset{
				Name:  HeroID + "_" + frame,
				Dest:  path.Join(inGame, HeroID, frame+".png"),
				Width: 512, Height: 512,
				Prompt: fmt.Sprintf("%s, %s, frame %d/%d, consistent character identity",
					heroPromptBase, a.Pose, i+1, a.Frames),
				Negative: heroNegative,
			})
		}
	}
	return Category{
		Name:       "hero",
		Kind:       KindImage,
		Sampling:   imageSampling(28, 7.5),
		DefaultExt: ".png",
		Assets:     assets,
	}
}

func StagePopup() Category {
	return Category{
		Name:       "stage-popup",
		Kind:       KindImage,
		Sampling:   imageSampling(28, 7.5),
		DefaultExt: ".png",
		Assets: []Asset{
			{
				Name:  "StageInfoPopup_Panel",
				Dest:  path.Join(stagePopupDir, "StageInfoPopup_Panel.png"),
				Width: 1024, Height: 768,
				Prompt: "fantasy mobile game ui popup panel background, kingdom rush inspired 2d hand-painted style, " +
					"dark parchment stone mix, ornate but readable frame, centered rectangular panel with thick decorative border, " +
					"subtle top highlight and inner shadow, clean silhouette, high contrast edge, no text, no icon, " +
					"no characters, flat front view, game-ready ui asset",
				Negative: "text, logo, watermark, blurry, photorealistic, 3d render, perspective distortion, noisy texture, " +
					"character, weapon, cluttered ornaments",
			},
			{
				Name:  "StageInfoPopup_Button",
				Dest:  path.Join(stagePopupDir, "StageInfoPopup_Button.png"),
				Width: 512, Height: 192,
				Prompt: "fantasy game ui button plate, hand-painted 2d, carved wood and bronze trim, horizontally stretchable button body, " +
					"centered front view, clear border for 9-slice, clean shading, no text, no symbols, no icon, game-ready mobile ui",
				Negative: "text, letters, logo, watermark, blurry, realistic photo, 3d perspective, heavy grunge noise, uneven silhouette",
			},
			{
				Name:  "StageInfoPopup_Button_Start",
				Dest:  path.Join(stagePopupDir, "StageInfoPopup_Button_Start.png"),
				Width: 512, Height: 192,
				Prompt: "fantasy game ui button for primary action, vivid emerald green glow accents, hand-painted 2d style, " +
					"thick readable border, centered front view, no text, no icon, no logo, mobile game quality, clean high contrast",
				Negative: "text, watermark, photorealistic, 3d render, blur, muddy colors, low contrast, visual clutter",
			},
			{
				Name:  "StageInfoPopup_Button_Close",
				Dest:  path.Join(stagePopupDir, "StageInfoPopup_Button_Close.png"),
				Width: 256, Height: 256,
				Prompt: "fantasy ui close button base, red lacquered square with beveled edge, medieval gold corner trim, " +
					"front view, centered, no text, no X symbol, hand-painted 2d icon style, crisp edge, game-ready ui",
				Negative: "letters, text, logo, watermark, blur, photorealistic, 3d perspective, noisy background",
			},
		},
	}
}

func StageNode() Category {
	return Category{
		Name:       "stage-node",
		Kind:       KindImage,
		Sampling:   imageSampling(24, 7.5),
		DefaultExt: ".png",
		Assets: []Asset{
			{
				Name:  "UIStageNode_SelectedHighlight",
				Dest:  path.Join(worldMapDir, "UIStageNode_SelectedHighlight.png"),
				Width: 512, Height: 512,
				Prompt: "fantasy game ui selection ring, warm golden magical glow, " +
					"subtle blue inner light, circular badge aura, centered, " +
					"clean outline, hand painted 2d, isolated on solid black background",
				Negative: "text, letters, logo, watermark, character, scenery, " +
					"photorealistic, 3d, noisy, blurry",
				PostProcess: true,
			},
			{
				Name:  "UIStageNode_LockIcon",
				Dest:  path.Join(worldMapDir, "UIStageNode_LockIcon.png"),
				Width: 384, Height: 384,
				Prompt: "fantasy ui lock icon, medieval metal padlock with rivets, " +
					"slight gold trim, front view, centered, high contrast, " +
					"hand painted 2d icon, isolated on solid black background",
				Negative: "text, letters, logo, watermark, key, chain clutter, " +
					"photorealistic, 3d render, blurry",
				PostProcess: true,
			},
			{
				Name:  "UIStageNode_NotificationDot",
				Dest:  path.Join(worldMapDir, "UIStageNode_NotificationDot.png"),
				Width: 256, Height: 256,
				Prompt: "fantasy ui notification badge, red gem dot with tiny gold rim, " +
					"glossy highlight, centered, simple silhouette, " +
					"hand painted 2d icon, isolated on solid black background",
				Negative: "text, letters, logo, watermark, realistic plastic, " +
					"3d, blurry, complex background",
				PostProcess: true,
			},
			{
				Name:  "UIStageNode_Star",
				Dest:  path.Join(worldMapDir, "UIStageNode_Star.png"),
				Width: 256, Height: 256,
				Prompt: "fantasy game ui golden star icon, five-point star, " +
					"polished metal with soft glow, centered, clear outline, " +
					"hand painted 2d icon, isolated on solid black background",
				Negative: "text, letters, logo, watermark, realistic photo, " +
					"3d render, noisy, blurry, asymmetry",
				PostProcess: true,
			},
		},
	}
}

func WorldMap() Category {
	return Category{
		Name:       "worldmap",
		Kind:       KindImage,
		Sampling:   imageSampling(24, 7.5),
		DefaultExt: ".png",
		Assets: []Asset{
			{
				Name:  "WorldMap_Background",
				Dest:  path.Join(worldMapDir, "WorldMap_Background.png"),
				Width: 1536, Height: 864,
				Prompt: "fantasy kingdom world map background, kingdom rush inspired, hand painted, " +
					"bright colorful valleys and hills, winding road path, distant castle, " +
					"clean 2d game art, no characters, no ui text, no logo, panoramic",
				Negative: "text, letters, words, watermark, logo, blurry, low quality, " +
					"photorealistic, 3d render, dark, grim",
			},
		},
	}
}
