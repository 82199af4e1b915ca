package service

import (
	"context"
	"fmt"

	"golang-stock-screener/internal/executor/repository"
	"golang-stock-screener/pkg/utils"
)

// symbolUniverse returns the configured tracked symbols followed by any other
// active security in the catalog.
func symbolUniverse(ctx context.Context, securityRepo repository.SecurityRepository, tracked []string) ([]string, error) {
	active, err := securityRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active securities: %w", err)
	}
	symbols := make([]string, 0, len(tracked)+len(active))
	symbols = append(symbols, tracked...)
	for _, s := range active {
		symbols = append(symbols, s.Symbol)
	}
	return utils.UniqueUpper(symbols), nil
}
