// Package auth issues and validates session tokens for registered users.
//
// Users are stored through the Users repository. Every write runs a
// SavePipeline, by default validation followed by bcrypt hashing of a
// password staged with User.SetPassword, so plaintext never reaches
// storage.
//
// Sessions:
//   - TokenIssuer signs an HS256 token carrying the user id and the
//     "auth" scope, appends it to the user's token list and persists the
//     record before handing the token out.
//   - TokenVerifier checks the signature first and only then requires
//     the stored user to still hold the exact token. Tokens do not
//     expire; removing the entry or rotating the signing key ends them.
//   - Concurrent token appends on the same user race, last write wins.
//     Enable conflict detection to get ErrWriteConflict instead.
//
// HTTP:
//   - RegisterUserRoutes mounts POST /users, POST /users/login and
//     GET /users/me on a go-router router. The me route is guarded by
//     the sessionware middleware reading the x-auth header.
//
// Errors are go-errors values. Their category drives the Is helpers
// and their code drives the HTTP status.
package auth
