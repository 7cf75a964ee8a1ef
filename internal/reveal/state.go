package reveal

// ScreenState is the whole session state shown to the viewer.
type ScreenState struct {
	IntroVisible  bool
	CardOpen      bool
	HasOpenedOnce bool // Never reverts to false
}

// NewScreenState returns the state at mount: intro showing, card closed.
func NewScreenState() ScreenState {
	return ScreenState{IntroVisible: true}
}

// DismissIntro returns s with the intro hidden. Hiding is terminal.
func (s ScreenState) DismissIntro() ScreenState {
	s.IntroVisible = false
	return s
}

// ToggleCard flips the card. celebrate is true only on the first closed→open edge.
func (s ScreenState) ToggleCard() (next ScreenState, celebrate bool) {
	s.CardOpen = !s.CardOpen
	if s.CardOpen && !s.HasOpenedOnce {
		s.HasOpenedOnce = true
		celebrate = true
	}
	return s, celebrate
}
