package tui

import (
	"github.com/matheuskafuri/xupdate/internal/feed"
)

type updatesLoadedMsg struct {
	res feed.Result
}

type statsLoadedMsg struct {
	text string
}

type cachedRecordsMsg struct {
	records []feed.Record
}

type pollTickMsg struct{}
