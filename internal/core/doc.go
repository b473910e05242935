// Package core recovers transactions from malformed payment exports and
// aggregates them into per-region and per-provider statistics.
//
// This package has no transport or UI dependencies. The analyze command,
// the HTTP server and tests all use it the same way.
//
// # Pipeline
//
// Each physical row of an export is tokenized on commas and then:
//
//  1. [Classifier.ClassifyRow] tags every token with a [Role] using the
//     [Vocabulary] (timestamp, provider, region, status, channel, currency,
//     rate, message)
//  2. [Splitter.Split] cuts the row into [Group]s; every provider token
//     opens a new group, so stitched transactions come apart
//  3. [Builder.Build] turns a group into a [Transaction], filling in
//     fallbacks: [MissingDateMarker], [BlankMessage] and [ChannelOther]
//  4. [Aggregator.Record] folds the transaction into the global, region,
//     provider and region+provider [Bucket]s
//
// A group without provider, region or status fails with an
// [IncompleteTransactionError]; it is counted as a [Rejection] and the
// rest of the row is still processed.
//
// # Entry Points
//
//	result, err := core.ParseFile(ctx, "export.csv", core.ParseOptions{Workers: 4})
//	if err != nil {
//	    // *FileReadError: missing, unreadable, empty, or nothing recovered
//	}
//	report := core.Aggregate(result.Transactions)
//	top := report.Global.Top(core.KindFailure, 5)
//
// [ParseOptions.Workers] above 1 builds rows concurrently. Results are
// put back in line order before aggregation, so message rankings match a
// sequential run exactly.
//
// # Service
//
// [Service] wraps parsing for the server: an [AnalysisLimiter] bounds
// concurrent analyses and a [ReportStore] keeps recent results in memory,
// keyed by run ID. [Service.StartStoreJanitor] drops expired results in the
// background. [Service.Preview] traces the first rows of an export through
// the pipeline without storing anything, which helps when tuning a
// vocabulary for a new export layout.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError]:
//
//   - FILE001-FILE007: File errors (size, format, empty, nothing recovered)
//   - PARSE001: Rejected groups
//   - UPL001-UPL005: Analysis errors (cancelled, busy, report expired)
//   - RPT001-RPT003: Report query errors (bad count, bad kind, empty selection)
package core
