package ui

import (
	"github.com/miyifan/deepchat/deepseek"
)

// Internal messages for asynchronous UI work.

type balanceFetchedMsg struct {
	Balance *deepseek.BalanceResponse
	Err     error
}

type snapshotSaveFailedMsg struct {
	Err error
}

// clearStatusMsg wipes the transient status notice after a delay.
type clearStatusMsg struct{}
