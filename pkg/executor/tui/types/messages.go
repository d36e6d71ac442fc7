package types

// RefreshMsg asks the model to re-read toolbar and tab state.
type RefreshMsg struct{}
