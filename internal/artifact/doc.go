// Package artifact implements the write-once/read-many hand-off of build
// outputs between stages.
//
// A stage publishes a directory under a name exactly once per run; any number
// of downstream stages (and every shard of them) restore it. The local store
// keeps each artifact as a gzip-compressed tar archive under the run
// directory, so artifacts disappear together with the run.
package artifact
