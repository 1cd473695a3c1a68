package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// pass_groups must be created BEFORE participants due to the group_id foreign key.
const schema = `
CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    leg_id TEXT NOT NULL,
    name TEXT NOT NULL,
    service_date TEXT NOT NULL,
    departs_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pass_groups (
    id TEXT PRIMARY KEY,
    trip_id TEXT NOT NULL,
    number INTEGER NOT NULL,
    steward_id TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (trip_id, number),
    FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    trip_id TEXT NOT NULL,
    rider_id TEXT NOT NULL,
    legs TEXT NOT NULL,
    willing_steward INTEGER NOT NULL DEFAULT 0,
    checked_in INTEGER NOT NULL DEFAULT 0,
    group_id TEXT,
    group_position INTEGER,
    joined_at INTEGER NOT NULL,
    left_at INTEGER,
    UNIQUE (trip_id, rider_id),
    FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE,
    FOREIGN KEY (group_id) REFERENCES pass_groups(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    result TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_locks (
    name TEXT PRIMARY KEY,
    holder TEXT NOT NULL,
    acquired_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_departs_at ON trips(departs_at);
CREATE INDEX IF NOT EXISTS idx_participants_trip_id ON participants(trip_id);
CREATE INDEX IF NOT EXISTS idx_participants_group_id ON participants(group_id);
CREATE INDEX IF NOT EXISTS idx_pass_groups_trip_id ON pass_groups(trip_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
