package state

import tele "gopkg.in/telebot.v4"

var stateHandlers = map[State]tele.HandlerFunc{}

// RegisterHandler associates a state with its input handler.
func RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	stateHandlers[st] = h
}
