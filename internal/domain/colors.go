package domain

import "math/rand"

// Color is one of the fixed palette colors shared by answers, players, and
// room codes.
type Color string

const (
	ColorRed    Color = "RED"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorYellow Color = "YELLOW"
	ColorPurple Color = "PURPLE"
	ColorOrange Color = "ORANGE"
)

// RoomCodeLength is the number of colors in a game's room code.
const RoomCodeLength = 8

var palette = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow, ColorPurple, ColorOrange}

// Palette returns a fresh copy of the fixed color palette.
func Palette() []Color {
	return append([]Color(nil), palette...)
}

// PaletteSize bounds both answers per question and players per game.
func PaletteSize() int {
	return len(palette)
}

// ValidColor reports whether c names a palette color.
func ValidColor(c Color) bool {
	for _, p := range palette {
		if p == c {
			return true
		}
	}
	return false
}

// ShuffledPalette returns the palette in a random order drawn from rnd.
func ShuffledPalette(rnd *rand.Rand) []Color {
	colors := Palette()
	rnd.Shuffle(len(colors), func(i, j int) {
		colors[i], colors[j] = colors[j], colors[i]
	})
	return colors
}

// AssignAnswerColors maps a shuffled palette positionally onto the answers,
// so every answer in a question gets a distinct color and the mapping is
// randomized per game.
func AssignAnswerColors(answers []Answer, rnd *rand.Rand) {
	colors := ShuffledPalette(rnd)
	for i := range answers {
		if i >= len(colors) {
			break
		}
		answers[i].Color = colors[i]
	}
}

// AvailableColors returns the palette colors not present in taken, in
// palette order.
func AvailableColors(taken []Color) []Color {
	free := make([]Color, 0, len(palette))
	for _, c := range palette {
		held := false
		for _, t := range taken {
			if t == c {
				held = true
				break
			}
		}
		if !held {
			free = append(free, c)
		}
	}
	return free
}

// RoomCode draws RoomCodeLength colors from the palette with repetition.
func RoomCode(rnd *rand.Rand) []Color {
	code := make([]Color, RoomCodeLength)
	for i := range code {
		code[i] = palette[rnd.Intn(len(palette))]
	}
	return code
}
