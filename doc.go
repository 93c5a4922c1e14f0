// Package authgate authenticates end users over two credential paths —
// a locally stored email/password pair and an OAuth2 identity provider —
// and maintains server-side sessions so later requests can be attributed
// to a user without re-presenting credentials.
//
// # Architecture
//
// Strategy: a pluggable algorithm that turns presented credentials into
// a resolved user or a typed rejection. LocalStrategy verifies an
// email/password pair against the user store with bcrypt; OAuthStrategy
// resolves (or lazily creates) a user from a provider profile. The email
// is the single external identifier: an OAuth login and a local login
// with the same email land on the same user record.
//
// SessionManager: issues an opaque, signed token for each authenticated
// user, stores the serialized principal server-side under a random id,
// and validates or terminates it on later requests. Sessions expire
// after a fixed TTL (5 hours by default).
//
// Coordinator: the single entry point handlers call — receive
// credentials, select strategy, resolve identity, establish session.
//
// # Basic Usage
//
// Wire the stores and the coordinator:
//
//	import (
//	    "github.com/alexedwards/scs/v2/memstore"
//	    "github.com/panyam/authgate"
//	    "github.com/panyam/authgate/stores/memory"
//	)
//
//	users := memory.New()
//	sessions := authgate.NewSessionManager(memstore.New(), cfg.SessionSecret)
//	auth := authgate.NewCoordinator(users, authgate.NewHasher(cfg.BcryptCost), sessions, logger)
//
// Authenticate and attribute requests:
//
//	token, err := auth.Register(ctx, "alice@example.com", "secret123")
//	user, err := auth.Session(ctx, token)
//	err = auth.Logout(ctx, token)
//
// HTTP handlers for /login, /register, /logout, /profile and /submit are
// available through Handlers; OAuth provider handshakes live in the
// oauth2 subpackage and call back into the coordinator with the resolved
// provider profile.
//
// Persistent user stores are pluggable: stores/memory for tests and
// single-process setups, stores/postgres on pgx with embedded goose
// migrations, and stores/gormstore for GORM-managed databases.
package authgate
