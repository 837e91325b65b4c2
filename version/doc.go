// Package version exposes build metadata of the askflow binary.
//
// Values are injected with ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ncobase/askflow/version.Version=1.2.3 \
//	  -X github.com/ncobase/askflow/version.Branch=main \
//	  -X github.com/ncobase/askflow/version.Revision=abc1234 \
//	  -X 'github.com/ncobase/askflow/version.BuiltAt=$(date)'" ./cmd/askflow
//
// The version is attached to every log entry and printed by `askflow version`.
package version
