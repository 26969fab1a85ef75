// Package repository provides data persistence implementations for encrypted invitations.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// secretColumn names the column recording which secret of purpose an invitation depends on.
func secretColumn(purpose keysDomain.Purpose) (string, bool) {
	switch purpose {
	case keysDomain.PurposeEncryption:
		return "sensitive_secret_id", true
	case keysDomain.PurposeHashing:
		return "email_hash_secret_id", true
	case keysDomain.PurposeSigning:
		return "token_secret_id", true
	default:
		return "", false
	}
}

// resealable reports whether stale values of purpose can be rewritten. Issued tokens
// live outside the database, so signing references only drain by expiry or acceptance.
func resealable(purpose keysDomain.Purpose) bool {
	return purpose == keysDomain.PurposeEncryption || purpose == keysDomain.PurposeHashing
}

// postgresHashPairs renders hashes as ($n, $n+1) tuples numbered from first, with the
// matching arguments, for a (email_hash, email_hash_secret_id) IN predicate.
func postgresHashPairs(hashes []cryptoDomain.SearchableHash, first int) (string, []any) {
	tuples := make([]string, 0, len(hashes))
	args := make([]any, 0, 2*len(hashes))
	for i, h := range hashes {
		n := first + 2*i
		tuples = append(tuples, fmt.Sprintf("($%d, $%d)", n, n+1))
		args = append(args, h.Data, h.SecretID)
	}
	return strings.Join(tuples, ", "), args
}

// mysqlHashPairs is postgresHashPairs for positional placeholders and BINARY(16) ids.
func mysqlHashPairs(hashes []cryptoDomain.SearchableHash) (string, []any) {
	tuples := make([]string, 0, len(hashes))
	args := make([]any, 0, 2*len(hashes))
	for _, h := range hashes {
		tuples = append(tuples, "(?, ?)")
		args = append(args, h.Data, h.SecretID[:])
	}
	return strings.Join(tuples, ", "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
