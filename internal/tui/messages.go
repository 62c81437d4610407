package tui

// deliveryMsg carries one dispatcher message into Update, which is the
// delivery context of the demo.
type deliveryMsg struct {
	msg any
}

// configChangedMsg is sent when the watched config file changes on disk.
type configChangedMsg struct {
	path string
}
