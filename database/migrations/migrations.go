// Package migrations registers the schema migrations in init(). Import it
// for side effects wherever migration.New(db).Run() is called.
package migrations
