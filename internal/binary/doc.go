// Package binary acquires PocketBase release archives through a persistent
// local cache and unpacks them into a project directory.
//
// # Cache Model
//
// The cache is a flat directory (default ~/.pb_cache) holding one file per
// artifact, named exactly like the release asset:
//
//	pocketbase_0.30.3_linux_amd64.zip
//
// An entry is written once, through a temporary file that is renamed into
// place only after the transfer (and optional verification) succeeds, so a
// name present in the cache always refers to a complete archive. Writers
// serialise on an advisory lock over a file in the cache root; a process that
// waited for the lock re-checks the cache before downloading, and one that
// gives up waiting downloads without it.
//
// # Verification
//
// Downloads are accepted as-is by default. A GPGVerifier can be configured
// to check a detached signature over fresh downloads before they are
// committed. Cache hits are trusted.
//
// # Usage
//
//	mgr, err := binary.NewManager(binary.Config{
//	    CacheDir: cacheDir,
//	    Progress: binary.TerminalProgress(os.Stderr),
//	})
//	if err != nil {
//	    return err
//	}
//
//	result, err := mgr.Install(ctx, "v0.30.3", tag, projectDir)
//
// # Architecture
//
//   - Manager: lookup, download, verify, extract
//   - Cache: cache root, lookup and atomic commit under Lock
//   - Downloader: single-attempt HTTP transfers
//   - Verifier: optional GPG signature check
//   - Extractor: zip extraction and executable permissions
package binary
