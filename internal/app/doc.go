// Package app composes the layout service.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Store, Category, Module and Layout records
//	├── storage/            # Repository interfaces
//	│   └── memory/         # In-memory implementation
//	├── services/           # stores, categories, layouts (engine), share
//	├── interchange/        # Snapshot file format
//	├── archive/            # Snapshot archive drivers (fs, s3, memory)
//	├── httpapi/            # HTTP handlers, routing, mutation audit
//	├── metrics/            # Prometheus collectors
//	├── system/             # Lifecycle manager
//	└── runtime/            # Config-driven process wiring
//
// Services own the rules; storage only enforces identity and existence.
// Repositories are injected through Stores so tests can run against an
// isolated in-memory instance.
package app
