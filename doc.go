// Package valutatrade provides the domain types of a local, file backed
// currency trading simulator.
//
// The core functionalities include:
//   - Currencies: a static registry of fiat and crypto currencies, looked up by
//     their 2 to 5 letters code.
//   - Pairs: ordered (from, to) currency tuples used as keys in the rate store.
//   - Wallets and Portfolios: per-user balances that can never go negative.
//   - Users: credentials stored as a salted argon2 hash.
//   - Persistence helpers: JSON files written with an atomic replace so that a
//     reader never observes a partially written file.
//
// Rates, settlement and storage live in the sub packages rates, trade and
// account. The `vth` command-line tool wires them together.
package valutatrade
