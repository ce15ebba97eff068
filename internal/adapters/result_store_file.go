package adapters

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"

	"app-installer/internal/ports"
	"app-installer/internal/types"
)

const resultStoreLockRetry = 25 * time.Millisecond
const maxResultLine = 1 << 20

// ResultStoreFileAdapter stores verification results as JSON lines. The file
// is opened lazily on first use and guarded by an advisory lock file so that
// several processes can append to it concurrently.
type ResultStoreFileAdapter struct {
	Path string

	mu      sync.Mutex
	once    sync.Once
	openErr error
	path    string
	lock    *flock.Flock
	closed  bool
}

func NewResultStoreFileAdapter(path string) *ResultStoreFileAdapter {
	return &ResultStoreFileAdapter{Path: path}
}

func (a *ResultStoreFileAdapter) Append(ctx context.Context, result types.VerificationResult) (types.VerificationResult, error) {
	if err := validateResult(result); err != nil {
		return types.VerificationResult{}, err
	}
	result.ID = uuid.NewString()
	line, err := json.Marshal(result)
	if err != nil {
		return types.VerificationResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode verification result").
			WithCause(err)
	}
	err = a.withLock(ctx, true, func() error {
		file, err := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err := file.Write(append(line, '\n')); err != nil {
			return err
		}
		return file.Sync()
	})
	if err != nil {
		return types.VerificationResult{}, storeError("failed to append verification result", err)
	}
	return result, nil
}

func (a *ResultStoreFileAdapter) Latest(ctx context.Context, key types.ResultKey) (types.VerificationResult, bool, error) {
	results, err := a.readAll(ctx)
	if err != nil {
		return types.VerificationResult{}, false, err
	}
	result, ok := latestFor(results, key)
	return result, ok, nil
}

func (a *ResultStoreFileAdapter) LatestAll(ctx context.Context) ([]types.VerificationResult, error) {
	results, err := a.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return latestAll(results), nil
}

func (a *ResultStoreFileAdapter) ListFlagged(ctx context.Context, manager types.ManagerID) ([]types.VerificationResult, error) {
	results, err := a.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return flaggedResults(results, manager), nil
}

// ClearFlag flips the review flag of the most recent flagged result of the
// pair while holding the exclusive lock. Every other line is written back
// byte for byte.
func (a *ResultStoreFileAdapter) ClearFlag(ctx context.Context, key types.ResultKey) (types.VerificationResult, error) {
	var cleared types.VerificationResult
	err := a.withLock(ctx, true, func() error {
		lines, results, err := a.readLines()
		if err != nil {
			return err
		}
		idx := latestFlagged(results, key)
		if idx < 0 {
			return errNoFlaggedResult(key)
		}
		cleared = results[idx]
		cleared.ManualReviewFlag = false
		line, err := json.Marshal(cleared)
		if err != nil {
			return err
		}
		lines[idx] = line
		return a.rewrite(lines)
	})
	if err != nil {
		return types.VerificationResult{}, storeError("failed to clear review flag", err)
	}
	return cleared, nil
}

func (a *ResultStoreFileAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.lock == nil {
		return nil
	}
	return a.lock.Close()
}

func (a *ResultStoreFileAdapter) open() error {
	a.once.Do(func() {
		path, err := homedir.Expand(strings.TrimSpace(a.Path))
		if err != nil {
			a.openErr = errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid result store path").
				WithCause(err)
			return
		}
		if path == "" {
			a.openErr = errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("result store path is empty")
			return
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			a.openErr = errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create result store directory").
				WithCause(err)
			return
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0644)
		if err != nil {
			a.openErr = errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to open result store").
				WithCause(err)
			return
		}
		_ = file.Close()
		a.path = path
		a.lock = flock.New(path + ".lock")
	})
	return a.openErr
}

func (a *ResultStoreFileAdapter) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	if err := a.open(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errStoreClosed()
	}
	var locked bool
	var err error
	if exclusive {
		locked, err = a.lock.TryLockContext(ctx, resultStoreLockRetry)
	} else {
		locked, err = a.lock.TryRLockContext(ctx, resultStoreLockRetry)
	}
	if err != nil || !locked {
		if err == nil {
			err = fmt.Errorf("lock not acquired")
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to lock result store").
			WithCause(err)
	}
	defer func() {
		_ = a.lock.Unlock()
	}()
	return fn()
}

func (a *ResultStoreFileAdapter) readAll(ctx context.Context) ([]types.VerificationResult, error) {
	var results []types.VerificationResult
	err := a.withLock(ctx, false, func() error {
		_, decoded, err := a.readLines()
		results = decoded
		return err
	})
	if err != nil {
		return nil, storeError("failed to read result store", err)
	}
	return results, nil
}

func (a *ResultStoreFileAdapter) readLines() ([][]byte, []types.VerificationResult, error) {
	file, err := os.Open(a.path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	var lines [][]byte
	var results []types.VerificationResult
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResultLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		result := types.VerificationResult{}
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		lines = append(lines, append([]byte(nil), raw...))
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return lines, results, nil
}

func (a *ResultStoreFileAdapter) rewrite(lines [][]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(a.path), filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	writer := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := writer.Write(line); err != nil {
			tmp.Close()
			return err
		}
		if err := writer.WriteByte('\n'); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), a.path)
}

// storeError keeps coded errors as they are and wraps everything else.
func storeError(msg string, err error) error {
	var coded *errbuilder.ErrBuilder
	if errors.As(err, &coded) {
		return err
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.ResultStorePort = (*ResultStoreFileAdapter)(nil)
