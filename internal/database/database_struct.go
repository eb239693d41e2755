package database

import "gorm.io/gorm"

// Database is the Postgres archive of room audit entries. It is write-only:
// room state is never rebuilt from it.
type Database struct {
	db *gorm.DB
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
