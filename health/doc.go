// Package health reports whether a bootstrap would succeed right now.
//
// A Checker reports one component: the store's reachability (StoreChecker)
// or the presence of a cached snapshot (CacheChecker). The Aggregator runs
// every registered checker and folds the results into a Report, which the
// `vaultboot check` command prints as JSON.
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(client, client.Address()))
//	agg.Register("cache", health.NewCacheChecker(store, "billing", false))
//
//	report := agg.Report(ctx)
//	if report.Status == health.StatusUnhealthy.String() {
//	    os.Exit(1)
//	}
package health
