package main

import (
	"github.com/nateberkopec/chime/internal/persistence"
	"github.com/nateberkopec/chime/internal/watch"
)

func newWatcher(dir string) (*watch.Watcher, error) {
	return watch.New(dir, persistence.LogFileName, persistence.StatusFileName, persistence.ConfigFileName)
}
