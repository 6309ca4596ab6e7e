package store

const schema = `
CREATE TABLE IF NOT EXISTS packages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    source TEXT NOT NULL,
    version TEXT,
    install_date TIMESTAMP,
    binary_path TEXT,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    is_dependency BOOLEAN NOT NULL DEFAULT 0,
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL,
    UNIQUE (name, source)
);

CREATE TABLE IF NOT EXISTS package_dependencies (
    package_id INTEGER NOT NULL,
    depends_on TEXT NOT NULL,
    PRIMARY KEY (package_id, depends_on),
    FOREIGN KEY (package_id) REFERENCES packages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS usage_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    package_id INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    event_date TEXT NOT NULL,
    detail TEXT,
    UNIQUE (package_id, event_type, event_date),
    FOREIGN KEY (package_id) REFERENCES packages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS scans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    scope TEXT NOT NULL,
    sources TEXT NOT NULL,
    found INTEGER NOT NULL,
    inserted INTEGER NOT NULL,
    updated INTEGER NOT NULL,
    pruned INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cleanups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    manifest_id TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    state TEXT NOT NULL,
    removed INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    skipped INTEGER NOT NULL,
    bytes_freed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS source_locks (
    source TEXT PRIMARY KEY,
    owner TEXT NOT NULL,
    acquired_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_packages_source ON packages(source);
CREATE INDEX IF NOT EXISTS idx_usage_package ON usage_events(package_id);
CREATE INDEX IF NOT EXISTS idx_usage_date ON usage_events(event_date);
CREATE INDEX IF NOT EXISTS idx_deps_package ON package_dependencies(package_id);
CREATE INDEX IF NOT EXISTS idx_deps_depends ON package_dependencies(depends_on);
`
