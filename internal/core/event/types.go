package event

// PlayerConnected fires after a player has been placed in the world.
type PlayerConnected struct {
	Slot int
	Name string
}

// PlayerDisconnected fires after a player has been removed from the world.
type PlayerDisconnected struct {
	Slot int
	Name string
}

// ScriptsReloaded fires after the Lua VM has been rebuilt from disk.
type ScriptsReloaded struct {
	Files int
}
