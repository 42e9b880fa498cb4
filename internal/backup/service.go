package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// manifestName is the manifest's entry name inside the uploaded archive.
const manifestName = "manifest.msgpack"

// databaseEntryName is the SQLite file's name inside the archive.
const databaseEntryName = "uptime.db"

// pendingRestoreFlag is the marker file that tells the next startup a
// staged restore is waiting to be applied.
const pendingRestoreFlag = ".pending-restore"

// stagingDirName holds a downloaded, not-yet-applied backup.
const stagingDirName = "restore-staging"

// Manifest describes one uploaded snapshot: the database file's size and
// checksum, recorded alongside it so a staged restore can be validated
// before it touches the production file.
type Manifest struct {
	Timestamp   time.Time `msgpack:"timestamp"`
	SizeBytes   int64     `msgpack:"size_bytes"`
	Checksum    string    `msgpack:"checksum"` // hex-encoded sha256
	FormatVersion int     `msgpack:"format_version"`
}

const manifestFormatVersion = 1

// BackupService creates and uploads snapshots of the SQLite database.
type BackupService struct {
	client  *Client
	dbPath  string
	dataDir string
	log     zerolog.Logger
}

// NewBackupService creates a BackupService for the database at dbPath.
func NewBackupService(client *Client, dbPath, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		client:  client,
		dbPath:  dbPath,
		dataDir: dataDir,
		log:     log.With().Str("component", "backup_service").Logger(),
	}
}

// UploadSnapshot archives the SQLite file plus a msgpack manifest into a
// single tar.gz and uploads it under a timestamped key.
func (s *BackupService) UploadSnapshot(ctx context.Context) error {
	start := time.Now()

	checksum, err := s.checksumFile(s.dbPath)
	if err != nil {
		return fmt.Errorf("upload snapshot: checksum database: %w", err)
	}

	info, err := os.Stat(s.dbPath)
	if err != nil {
		return fmt.Errorf("upload snapshot: stat database: %w", err)
	}

	manifest := Manifest{
		Timestamp:     start.UTC(),
		SizeBytes:     info.Size(),
		Checksum:      checksum,
		FormatVersion: manifestFormatVersion,
	}

	archivePath := filepath.Join(s.dataDir, fmt.Sprintf("uptime-backup-%s.tar.gz", start.UTC().Format("20060102-150405")))
	if err := s.createArchive(archivePath, manifest); err != nil {
		return fmt.Errorf("upload snapshot: create archive: %w", err)
	}
	defer os.Remove(archivePath)

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("upload snapshot: open archive: %w", err)
	}
	defer archiveFile.Close()

	archiveInfo, err := archiveFile.Stat()
	if err != nil {
		return fmt.Errorf("upload snapshot: stat archive: %w", err)
	}

	key := filepath.Base(archivePath)
	if err := s.client.Upload(ctx, key, archiveFile, archiveInfo.Size()); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	s.log.Info().Str("key", key).Dur("duration", time.Since(start)).Msg("uploaded database snapshot")
	return nil
}

// createArchive writes a tar.gz of the database file plus a msgpack
// manifest to archivePath.
func (s *BackupService) createArchive(archivePath string, manifest Manifest) error {
	manifestBytes, err := msgpack.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer out.Close()

	gzw := gzip.NewWriter(out)
	defer gzw.Close()
	tw := tar.NewWriter(gzw)
	defer tw.Close()

	if err := s.addFileToTar(tw, s.dbPath, databaseEntryName); err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: manifestName,
		Mode: 0o644,
		Size: int64(len(manifestBytes)),
	}); err != nil {
		return fmt.Errorf("write manifest header: %w", err)
	}
	if _, err := tw.Write(manifestBytes); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func (s *BackupService) addFileToTar(tw *tar.Writer, path, entryName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := tw.WriteHeader(&tar.Header{Name: entryName, Mode: 0o644, Size: info.Size()}); err != nil {
		return fmt.Errorf("write tar header for %s: %w", entryName, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write tar body for %s: %w", entryName, err)
	}
	return nil
}

func (s *BackupService) checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RemoteSnapshot identifies an uploaded archive for listing.
type RemoteSnapshot struct {
	Key          string
	LastModified time.Time
	SizeBytes    int64
}

// ListSnapshots returns every uploaded snapshot, newest first.
func (s *BackupService) ListSnapshots(ctx context.Context) ([]RemoteSnapshot, error) {
	objects, err := s.client.List(ctx, "uptime-backup-")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	snapshots := make([]RemoteSnapshot, 0, len(objects))
	for _, obj := range objects {
		snapshots = append(snapshots, RemoteSnapshot{
			Key:          aws2String(obj.Key),
			LastModified: aws2Time(obj.LastModified),
			SizeBytes:    aws2Int64(obj.Size),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].LastModified.After(snapshots[j].LastModified) })
	return snapshots, nil
}

func aws2String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func aws2Time(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

func aws2Int64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// RestoreService stages and applies a restore from a remote snapshot in
// two phases: StageRestore downloads and validates the archive and
// drops a flag file; ExecuteStagedRestore, called on the next startup
// before the database is opened, applies it after taking a safety copy
// of the current file.
type RestoreService struct {
	client  *Client
	dataDir string
	dbPath  string
	log     zerolog.Logger
}

// NewRestoreService creates a RestoreService.
func NewRestoreService(client *Client, dataDir, dbPath string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		client:  client,
		dataDir: dataDir,
		dbPath:  dbPath,
		log:     log.With().Str("component", "restore_service").Logger(),
	}
}

// HasPendingRestore reports whether a restore was staged but not yet
// applied.
func (s *RestoreService) HasPendingRestore() (bool, error) {
	_, err := os.Stat(filepath.Join(s.dataDir, pendingRestoreFlag))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check pending restore: %w", err)
	}
	return true, nil
}

// StageRestore downloads key from the bucket, validates it, and marks it
// pending. Phase 1 of the two-phase restore.
func (s *RestoreService) StageRestore(ctx context.Context, key string) error {
	stagingDir := filepath.Join(s.dataDir, stagingDirName)
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("stage restore: clean staging dir: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("stage restore: create staging dir: %w", err)
	}

	archivePath := filepath.Join(stagingDir, key)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("stage restore: create archive file: %w", err)
	}
	if _, err := s.client.Download(ctx, key, archiveFile); err != nil {
		archiveFile.Close()
		os.RemoveAll(stagingDir)
		return fmt.Errorf("stage restore: download: %w", err)
	}
	archiveFile.Close()

	if err := extractArchive(archivePath, stagingDir); err != nil {
		os.RemoveAll(stagingDir)
		return fmt.Errorf("stage restore: extract: %w", err)
	}

	if err := s.validateStaged(stagingDir); err != nil {
		os.RemoveAll(stagingDir)
		return fmt.Errorf("stage restore: validate: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dataDir, pendingRestoreFlag), []byte(key), 0o644); err != nil {
		os.RemoveAll(stagingDir)
		return fmt.Errorf("stage restore: write pending flag: %w", err)
	}

	s.log.Info().Str("key", key).Msg("restore staged; restart to apply")
	return nil
}

// ExecuteStagedRestore applies a previously staged restore. Phase 2,
// meant to be called at startup before the database is opened.
func (s *RestoreService) ExecuteStagedRestore() error {
	stagingDir := filepath.Join(s.dataDir, stagingDirName)
	if err := s.validateStaged(stagingDir); err != nil {
		return fmt.Errorf("execute staged restore: validate: %w", err)
	}

	safetyPath := s.dbPath + fmt.Sprintf(".pre-restore-%s", time.Now().UTC().Format("20060102-150405"))
	if _, err := os.Stat(s.dbPath); err == nil {
		if err := copyFile(s.dbPath, safetyPath); err != nil {
			s.log.Error().Err(err).Msg("failed to create pre-restore safety copy, continuing")
		}
	}

	stagedDBPath := filepath.Join(stagingDir, databaseEntryName)
	os.Remove(s.dbPath)
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")
	if err := copyFile(stagedDBPath, s.dbPath); err != nil {
		return fmt.Errorf("execute staged restore: apply database: %w", err)
	}

	os.Remove(filepath.Join(s.dataDir, pendingRestoreFlag))
	os.RemoveAll(stagingDir)

	s.log.Warn().Str("safety_copy", safetyPath).Msg("restore applied")
	return nil
}

// CancelStagedRestore discards a staged restore without applying it.
func (s *RestoreService) CancelStagedRestore() error {
	if err := os.Remove(filepath.Join(s.dataDir, pendingRestoreFlag)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cancel staged restore: %w", err)
	}
	return os.RemoveAll(filepath.Join(s.dataDir, stagingDirName))
}

func (s *RestoreService) validateStaged(stagingDir string) error {
	manifestPath := filepath.Join(stagingDir, manifestName)
	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := msgpack.Unmarshal(manifestBytes, &manifest); err != nil {
		return fmt.Errorf("decode manifest: %w", err)
	}

	dbPath := filepath.Join(stagingDir, databaseEntryName)
	info, err := os.Stat(dbPath)
	if err != nil {
		return fmt.Errorf("staged database missing: %w", err)
	}
	if info.Size() != manifest.SizeBytes {
		return fmt.Errorf("staged database size mismatch: expected %d, got %d", manifest.SizeBytes, info.Size())
	}

	checksum, err := s.checksumFile(dbPath)
	if err != nil {
		return fmt.Errorf("checksum staged database: %w", err)
	}
	if checksum != manifest.Checksum {
		return fmt.Errorf("staged database checksum mismatch")
	}

	return checkSQLiteIntegrity(dbPath)
}

func (s *RestoreService) checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func checkSQLiteIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open staged database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		targetPath := filepath.Join(destDir, header.Name)
		if !filepath.HasPrefix(targetPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid entry path in archive: %s", header.Name)
		}

		out, err := os.Create(targetPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", header.Name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", header.Name, err)
		}
		out.Close()
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
