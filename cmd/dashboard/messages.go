package main

import (
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/overlay/scheduler"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
)

// botStatusMsg carries a fresh status poll result into the UI loop.
type botStatusMsg struct {
	Status types.BotStatus
}

// engineStateMsg carries an engine state transition into the UI loop.
type engineStateMsg struct {
	State scheduler.State
}

// renderTickMsg triggers a chart redraw so marker changes made by the
// overlay goroutines become visible.
type renderTickMsg struct {
	At time.Time
}

// selectionFailedMsg reports a rejected symbol or interval switch.
type selectionFailedMsg struct {
	Err error
}
