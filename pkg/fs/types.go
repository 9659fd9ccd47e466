package fs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
)

// BlockSize is the server-side block size of a file, in bytes. Units are
// decimal: 1K is 1000 bytes.
type BlockSize uint64

const (
	Byte     BlockSize = 1
	Kilobyte           = 1000 * Byte
	Megabyte           = 1000 * Kilobyte
	Gigabyte           = 1000 * Megabyte
	Terabyte           = 1000 * Gigabyte
)

// DefaultBlockSize is used by Upload when no block size is given.
const DefaultBlockSize = Megabyte

var blockUnits = []struct {
	size   BlockSize
	suffix string
}{
	{Terabyte, "T"},
	{Gigabyte, "G"},
	{Megabyte, "M"},
	{Kilobyte, "K"},
}

var blockSizePattern = regexp.MustCompile(`^[0-9]+[BKMGT]$`)

// String renders the size with the largest unit that divides it exactly,
// the form the upload endpoint expects (for example "1M" or "1500K").
func (b BlockSize) String() string {
	for _, u := range blockUnits {
		if b >= u.size && b%u.size == 0 {
			return strconv.FormatUint(uint64(b/u.size), 10) + u.suffix
		}
	}
	return strconv.FormatUint(uint64(b), 10) + "B"
}

// Human renders the size for display.
func (b BlockSize) Human() string {
	return humanize.Bytes(uint64(b))
}

// ParseBlockSize parses a size written as an integer followed by one of
// B, K, M, G or T.
func ParseBlockSize(s string) (BlockSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !blockSizePattern.MatchString(s) {
		return 0, fmt.Errorf("fs: invalid block size %q", s)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("fs: invalid block size %q: %w", s, err)
	}
	return BlockSize(n), nil
}

// Compression is the block compression applied by the server.
type Compression string

const (
	CompressionNone   Compression = ""
	CompressionGzip   Compression = "gzip"
	CompressionSnappy Compression = "snappy"
)

// ParseCompression accepts "", "gzip" and "snappy".
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case CompressionNone, CompressionGzip, CompressionSnappy:
		return c, nil
	default:
		return "", fmt.Errorf("fs: unknown compression %q", s)
	}
}

// UploadOptions tunes Upload. The zero value uploads uncompressed in 1M
// blocks.
type UploadOptions struct {
	BlockSize   BlockSize
	Compression Compression
	ContentType string
}

// DirEntry is a directory listed by List.
type DirEntry struct {
	Name             string
	ContentType      string
	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
}

// FileEntry is a file listed by List.
type FileEntry struct {
	Name             string
	ContentType      string
	Size             uint64
	BlockSize        BlockSize
	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
}

// DirInfo describes a directory.
type DirInfo struct {
	Pod              string
	Path             string
	Name             string
	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
	Dirs             uint64
	Files            uint64
}

// FileBlock is one stored block of a file.
type FileBlock struct {
	Name           string
	Reference      string
	Size           uint64
	CompressedSize uint64
}

// FileInfo describes a file and its blocks.
type FileInfo struct {
	Pod              string
	Path             string
	Name             string
	ContentType      string
	Size             uint64
	BlockSize        BlockSize
	Compression      Compression
	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
	Blocks           []FileBlock
}

// SharedFileInfo describes a file behind a sharing reference.
type SharedFileInfo struct {
	Pod         string
	Name        string
	ContentType string
	Size        uint64
	BlockSize   BlockSize
	Blocks      uint64
	Compression Compression
	Sender      string
	Receiver    string
	SharedTime  time.Time
}

type dirRequest struct {
	PodName string `json:"pod_name"`
	DirPath string `json:"dir_path"`
}

type fileRequest struct {
	PodName  string `json:"pod_name"`
	FilePath string `json:"file_path"`
	DestUser string `json:"dest_user,omitempty"`
}

type dirEntryResponse struct {
	Name             string          `json:"name"`
	ContentType      string          `json:"content_type"`
	CreationTime     dfsapi.UnixTime `json:"creation_time"`
	ModificationTime dfsapi.UnixTime `json:"modification_time"`
	AccessTime       dfsapi.UnixTime `json:"access_time"`
}

type fileEntryResponse struct {
	Name             string          `json:"name"`
	ContentType      string          `json:"content_type"`
	Size             dfsapi.Int64    `json:"size"`
	BlockSize        dfsapi.Int64    `json:"block_size"`
	CreationTime     dfsapi.UnixTime `json:"creation_time"`
	ModificationTime dfsapi.UnixTime `json:"modification_time"`
	AccessTime       dfsapi.UnixTime `json:"access_time"`
}

type listResponse struct {
	Dirs  []dirEntryResponse  `json:"dirs"`
	Files []fileEntryResponse `json:"files"`
}

type dirStatResponse struct {
	PodName          string          `json:"pod_name"`
	DirPath          string          `json:"dir_path"`
	DirName          string          `json:"dir_name"`
	CreationTime     dfsapi.UnixTime `json:"creation_time"`
	ModificationTime dfsapi.UnixTime `json:"modification_time"`
	AccessTime       dfsapi.UnixTime `json:"access_time"`
	Dirs             dfsapi.Int64    `json:"no_of_directories"`
	Files            dfsapi.Int64    `json:"no_of_files"`
}

type uploadResponse struct {
	Responses []struct {
		FileName string `json:"file_name"`
		Message  string `json:"message,omitempty"`
	} `json:"Responses"`
}

type shareResponse struct {
	Reference string `json:"file_sharing_reference"`
}

type blockResponse struct {
	Name           string       `json:"name"`
	Reference      string       `json:"reference"`
	Size           dfsapi.Int64 `json:"size"`
	CompressedSize dfsapi.Int64 `json:"compressed_size"`
}

type fileStatResponse struct {
	PodName          string          `json:"pod_name"`
	FilePath         string          `json:"file_path"`
	FileName         string          `json:"file_name"`
	ContentType      string          `json:"content_type"`
	FileSize         dfsapi.Int64    `json:"file_size"`
	BlockSize        dfsapi.Int64    `json:"block_size"`
	Compression      string          `json:"compression"`
	CreationTime     dfsapi.UnixTime `json:"creation_time"`
	ModificationTime dfsapi.UnixTime `json:"modification_time"`
	AccessTime       dfsapi.UnixTime `json:"access_time"`
	Blocks           []blockResponse `json:"Blocks"`
}

type receiveResponse struct {
	FileName string `json:"file_name"`
}

type receiveInfoResponse struct {
	PodName        string          `json:"pod_name"`
	Name           string          `json:"name"`
	ContentType    string          `json:"content_type"`
	Size           dfsapi.Int64    `json:"size"`
	BlockSize      dfsapi.Int64    `json:"block_size"`
	NumberOfBlocks dfsapi.Int64    `json:"number_of_blocks"`
	Compression    string          `json:"compression"`
	SourceAddress  string          `json:"source_address"`
	DestAddress    string          `json:"dest_address"`
	SharedTime     dfsapi.UnixTime `json:"shared_time"`
}
