package sqlstore

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
)

// translate maps driver errors that carry domain meaning onto DomainError kinds and
// wraps everything else with the failed action.
func translate(err error, action, entityName string, id any) error {
	if err == nil {
		return nil
	}
	if _, ok := entity.AsDomainError(err); ok {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqSerializationFailure, pqDeadlockDetected, pqCheckViolation:
			return entity.NewConcurrencyConflict(entityName, id)
		case pqUniqueViolation:
			return entity.NewRuleViolation(entity.RuleInvalidValue, "%s %v already exists (%s)", entityName, id, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// isUniqueViolation reports a duplicate key on either dialect.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return sqliteUniqueViolation(err)
}
