// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// Two tabs share one [Model]:
//  1. [MealPlansTab] : plan list with status badges, plan detail, refresh, and the realtime status indicator
//  2. [ChatTab] : "Ask Genie" chat list, thread view and message input
//
// Entering and leaving the Meal Plans tab drives realtime.Manager.SetViewActive, so the push channel is only
// open while someone is looking at jobs. Terminal focus changes are forwarded to SetFocused.
//
// Store changes and channel state arrive through subscriptions that are re-armed after every message,
// and are delivered as the Msg union type.
package ui
