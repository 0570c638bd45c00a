// Package core provides the file flows of the dryer log on top of a record
// store.
//
// This package contains no transport code. The web server and the CLI call
// the same Service methods.
//
// # Flows
//
//   - [Service.ImportCSV] merges a record CSV into the store.
//   - [Service.LoadMaster] replaces the store with all_records.json.
//   - [Service.BuildMaster] parses many CSV files into a new snapshot.
//   - [Service.MergeFiles] adds a delta file to a reference snapshot.
//   - [Service.ExportModelCSV], [Service.ExportReport], [Service.ExportDaily]
//     and [Service.ExportAll] render the export files.
//   - [Service.AttachRawChart] and [Service.RawChartPlot] handle raw
//     temperature logs.
//   - [Service.PreviewCSV] shows the header mapping of a CSV before import.
//
// Exports return an [Artifact] held in memory; the caller decides where it
// goes. A daily export only marks records synced once the caller confirms
// delivery with [Service.MarkExported].
//
// # Concurrency
//
// Every flow that reads a file takes a slot from the service's
// [ParseLimiter]. A batch build uses one slot and parses its files on an
// errgroup bounded by the same limit.
//
// # Error Handling
//
// Errors wrap the kinds in errors.go. [MapError] turns any of them into a
// [UserMessage] with a support code:
//
//   - VAL001-VAL002: validation and bad requests
//   - PAR001-PAR005: unreadable CSV or JSON input
//   - NF001: unknown record
//   - PER001: storage failures
//   - FILE001-FILE003: size, empty result, missing file
//   - EXP001: nothing to export
//   - UPL001-UPL003: busy, cancelled, timed out
//
// Failures are also published as error notices on the store's dispatcher.
package core
