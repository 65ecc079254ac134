package trapdb

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// DebugHandler builds an HTTP handler exposing the standard debug
// endpoints plus a tailSQL console over the calibration database, for
// poking at stored runs and fits during an experiment session.
func (db *DB) DebugHandler(dbPath string) (http.Handler, error) {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+dbPath, db.DB, &tailsql.DBOptions{
		Label: "Trap calibration DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	return mux, nil
}
