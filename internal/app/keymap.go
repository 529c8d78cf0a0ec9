package app

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyTab       = "tab"
	KeyShiftTab  = "shift+tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyJ         = "j"
	KeyK         = "k"
	KeyEnter     = "enter"
	KeyEsc       = "esc"
	KeySave      = "ctrl+s"
	KeyNew       = "n"
	KeyList      = "l"
	KeyEdit      = "e"
	KeyDelete    = "d"
	KeyCancel    = "c"
	KeyPreview   = "p"
)
