// Package password hashes and verifies member passwords with Argon2id for the
// login boundary.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// This package owns hashing only. It never stores passwords and never logs
// plaintext or hash parameters.
package password
