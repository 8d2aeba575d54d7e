package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/vaultboot/cache"
	"github.com/jonwraymond/vaultboot/health"
)

func ExampleNewCacheChecker() {
	store := cache.NewMemoryStore()
	_ = store.Create(context.Background(), "billing", map[string]string{"DB_HOST": "db"})

	result := health.NewCacheChecker(store, "billing", false).Check(context.Background())

	fmt.Println(result.Status, result.Details["keys"])
	// Output:
	// healthy 1
}

func ExampleAggregator_Report() {
	agg := health.NewAggregator(health.AggregatorConfig{Parallel: false})
	agg.Register("store", health.NewCheckerFunc("store", func(ctx context.Context) health.Result {
		return health.Healthy("store reachable")
	}))
	agg.Register("cache", health.NewCheckerFunc("cache", func(ctx context.Context) health.Result {
		return health.Degraded("no cached snapshot", nil)
	}))

	report := agg.Report(context.Background())
	fmt.Println(report.Status, report.Healthy())
	for _, c := range report.Checks {
		fmt.Println(c.Name, c.Status)
	}
	// Output:
	// degraded true
	// store healthy
	// cache degraded
}
