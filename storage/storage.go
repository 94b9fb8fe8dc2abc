// Package storage picks the quiz unlock record store configured by storage.driver.
package storage

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/coursetrack/core"
	"github.com/trezcool/coursetrack/core/unlock"
	"github.com/trezcool/coursetrack/storage/database"
	dummydb "github.com/trezcool/coursetrack/storage/database/dummy"
	sqlxrepos "github.com/trezcool/coursetrack/storage/database/sqlx"
	filestore "github.com/trezcool/coursetrack/storage/file"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// NewUnlockRepository opens the configured store. The returned close func releases it.
func NewUnlockRepository(conf *core.Config, logger core.Logger) (unlock.Repository, func() error, error) {
	noop := func() error { return nil }

	switch conf.Storage.Driver {
	case core.StorageMemory, "":
		db, err := dummydb.Open()
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening in-memory store")
		}
		return dummydb.NewUnlockRepository(db), noop, nil

	case core.StorageFile:
		path := conf.Storage.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(conf.WorkDir, path)
		}
		return filestore.NewUnlockRepository(path, logger), noop, nil

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		db, err := database.OpenX(conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening database")
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlxrepos.NewUnlockRepository(db), db.Close, nil
	}
	return nil, nil, errors.Wrapf(ErrUnknownDriver, "%q", conf.Storage.Driver)
}
