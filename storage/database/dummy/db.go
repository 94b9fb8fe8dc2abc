package dummydb

import (
	"sync"

	"github.com/trezcool/coursetrack/core/unlock"
)

type (
	DB struct {
		unlock *unlockTable
	}

	unlockTable struct {
		sync.RWMutex
		table map[string]*unlock.Record // {"<user>:<course>": record}
	}
)

func Open() (*DB, error) {
	db := &DB{
		unlock: &unlockTable{table: make(map[string]*unlock.Record)},
	}
	return db, nil
}
