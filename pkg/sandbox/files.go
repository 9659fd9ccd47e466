package sandbox

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
	"github.com/fairdatasociety/fairos_sdk_go/pkg/fs"
)

const maxUploadMemory = 32 << 20

type dirNode struct {
	created  time.Time
	modified time.Time
	accessed time.Time
}

type block struct {
	name string
	ref  string
	size int
	data []byte
}

type fileNode struct {
	contentType string
	size        int64
	blockSize   fs.BlockSize
	compression fs.Compression
	blocks      []block
	created     time.Time
	modified    time.Time
	accessed    time.Time
}

type fileShare struct {
	ref      string
	pod      string
	name     string
	file     *fileNode
	sender   string
	receiver string
	sharedAt time.Time
}

type fileRequest struct {
	PodName  string `json:"pod_name"`
	DirPath  string `json:"dir_path"`
	FilePath string `json:"file_path"`
	DestUser string `json:"dest_user"`
}

func cleanPath(p string) (string, bool) {
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	return path.Clean(p), true
}

func compress(c fs.Compression, data []byte) ([]byte, error) {
	switch c {
	case fs.CompressionGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case fs.CompressionSnappy:
		return snappy.Encode(nil, data), nil
	default:
		return append([]byte(nil), data...), nil
	}
}

func decompress(c fs.Compression, data []byte) ([]byte, error) {
	switch c {
	case fs.CompressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case fs.CompressionSnappy:
		return snappy.Decode(nil, data)
	default:
		return data, nil
	}
}

func (p *podState) mkdir(dir string, now time.Time) error {
	dir, ok := cleanPath(dir)
	if !ok {
		return badRequest("mkdir: directory path must be absolute")
	}
	if _, ok := p.dirs[dir]; ok {
		return badRequest("mkdir: directory name already present")
	}
	parent := path.Dir(dir)
	if _, ok := p.dirs[parent]; !ok {
		return badRequest("mkdir: parent directory " + parent + " does not exist")
	}
	p.dirs[dir] = &dirNode{created: now, modified: now, accessed: now}
	p.dirs[parent].modified = now
	return nil
}

// mkdirAll creates dir and its missing parents.
func (p *podState) mkdirAll(dir string, now time.Time) error {
	dir, ok := cleanPath(dir)
	if !ok {
		return badRequest("mkdir: directory path must be absolute")
	}
	if _, ok := p.dirs[dir]; ok || dir == "/" {
		return nil
	}
	if err := p.mkdirAll(path.Dir(dir), now); err != nil {
		return err
	}
	return p.mkdir(dir, now)
}

func (p *podState) writeFile(dir, name string, data []byte, contentType string, bs fs.BlockSize, c fs.Compression, now time.Time) error {
	dir, ok := cleanPath(dir)
	if !ok {
		return badRequest("upload: directory path must be absolute")
	}
	if _, ok := p.dirs[dir]; !ok {
		return badRequest("upload: directory " + dir + " does not exist")
	}
	full := path.Join(dir, name)
	if _, ok := p.files[full]; ok {
		return badRequest("upload: file " + full + " already present")
	}
	if bs == 0 {
		bs = fs.DefaultBlockSize
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	f := &fileNode{
		contentType: contentType,
		size:        int64(len(data)),
		blockSize:   bs,
		compression: c,
		created:     now,
		modified:    now,
		accessed:    now,
	}
	for i := 0; i*int(bs) < len(data); i++ {
		end := min((i+1)*int(bs), len(data))
		stored, err := compress(c, data[i*int(bs):end])
		if err != nil {
			return fmt.Errorf("upload: compress block %d: %w", i, err)
		}
		sum := sha256.Sum256(stored)
		f.blocks = append(f.blocks, block{
			name: "block-" + strconv.Itoa(i),
			ref:  hex.EncodeToString(sum[:]),
			size: end - i*int(bs),
			data: stored,
		})
	}
	p.files[full] = f
	p.dirs[dir].modified = now
	return nil
}

func (p *podState) readFile(filePath string, now time.Time) ([]byte, *fileNode, error) {
	filePath, ok := cleanPath(filePath)
	if !ok {
		return nil, nil, badRequest("file path must be absolute")
	}
	f, ok := p.files[filePath]
	if !ok {
		return nil, nil, notFound("file " + filePath + " not found")
	}
	var buf bytes.Buffer
	for _, b := range f.blocks {
		data, err := decompress(f.compression, b.data)
		if err != nil {
			return nil, nil, fmt.Errorf("decompress %s: %w", b.name, err)
		}
		buf.Write(data)
	}
	f.accessed = now
	return buf.Bytes(), f, nil
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req fileRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "mkdir")
	if err != nil {
		return err
	}
	if err := p.mkdir(req.DirPath, s.now()); err != nil {
		return err
	}
	writeMessage(w, http.StatusCreated, "directory created successfully")
	return nil
}

func (s *Server) handleRmdir(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req fileRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "rmdir")
	if err != nil {
		return err
	}
	dir, ok := cleanPath(req.DirPath)
	if !ok || dir == "/" {
		return badRequest("rmdir: invalid directory path")
	}
	if _, ok := p.dirs[dir]; !ok {
		return notFound("rmdir: directory not present")
	}
	prefix := dir + "/"
	for d := range p.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(p.dirs, d)
		}
	}
	for f := range p.files {
		if strings.HasPrefix(f, prefix) {
			delete(p.files, f)
		}
	}
	writeMessage(w, http.StatusOK, "directory removed successfully")
	return nil
}

type entryTimes struct {
	CreationTime     string `json:"creation_time"`
	ModificationTime string `json:"modification_time"`
	AccessTime       string `json:"access_time"`
}

func timesOf(created, modified, accessed time.Time) entryTimes {
	return entryTimes{
		CreationTime:     dfsapi.FormatUnix(created),
		ModificationTime: dfsapi.FormatUnix(modified),
		AccessTime:       dfsapi.FormatUnix(accessed),
	}
}

func (s *Server) handleDirList(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	p, err := openPod(acct, q.Get("pod_name"), "ls")
	if err != nil {
		return err
	}
	dir, ok := cleanPath(q.Get("dir_path"))
	if !ok {
		return badRequest("ls: directory path must be absolute")
	}
	node, ok := p.dirs[dir]
	if !ok {
		return notFound("ls: directory not present")
	}
	node.accessed = s.now()

	type dirEntry struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		entryTimes
	}
	type fileEntry struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Size        string `json:"size"`
		BlockSize   string `json:"block_size"`
		entryTimes
	}
	dirs := []dirEntry{}
	for d, n := range p.dirs {
		if d != "/" && path.Dir(d) == dir {
			dirs = append(dirs, dirEntry{Name: path.Base(d), ContentType: "inode/directory", entryTimes: timesOf(n.created, n.modified, n.accessed)})
		}
	}
	files := []fileEntry{}
	for name, f := range p.files {
		if path.Dir(name) == dir {
			files = append(files, fileEntry{
				Name:        path.Base(name),
				ContentType: f.contentType,
				Size:        strconv.FormatInt(f.size, 10),
				BlockSize:   strconv.FormatUint(uint64(f.blockSize), 10),
				entryTimes:  timesOf(f.created, f.modified, f.accessed),
			})
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"dirs": dirs, "files": files})
	return nil
}

func (s *Server) handleDirPresent(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	p, err := openPod(acct, q.Get("pod_name"), "dir present")
	if err != nil {
		return err
	}
	dir, ok := cleanPath(q.Get("dir_path"))
	_, present := p.dirs[dir]
	writeJSON(w, http.StatusOK, map[string]bool{"present": ok && present})
	return nil
}

func (s *Server) handleDirStat(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	p, err := openPod(acct, q.Get("pod_name"), "dir stat")
	if err != nil {
		return err
	}
	dir, ok := cleanPath(q.Get("dir_path"))
	if !ok {
		return badRequest("dir stat: directory path must be absolute")
	}
	node, ok := p.dirs[dir]
	if !ok {
		return notFound("dir stat: directory not present")
	}
	var dirs, files int
	for d := range p.dirs {
		if d != "/" && path.Dir(d) == dir {
			dirs++
		}
	}
	for f := range p.files {
		if path.Dir(f) == dir {
			files++
		}
	}
	t := timesOf(node.created, node.modified, node.accessed)
	writeJSON(w, http.StatusOK, map[string]string{
		"pod_name":          p.name,
		"dir_path":          path.Dir(dir),
		"dir_name":          path.Base(dir),
		"creation_time":     t.CreationTime,
		"modification_time": t.ModificationTime,
		"access_time":       t.AccessTime,
		"no_of_directories": strconv.Itoa(dirs),
		"no_of_files":       strconv.Itoa(files),
	})
	return nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, acct *account) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return badRequest("upload: " + err.Error())
	}
	p, err := openPod(acct, r.FormValue("pod_name"), "upload")
	if err != nil {
		return err
	}
	bs := fs.DefaultBlockSize
	if raw := r.FormValue("block_size"); raw != "" {
		if bs, err = fs.ParseBlockSize(raw); err != nil {
			return badRequest("upload: " + err.Error())
		}
	}
	compression, err := fs.ParseCompression(r.Header.Get(fs.CompressionHeader))
	if err != nil {
		return badRequest("upload: " + err.Error())
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return badRequest("upload: no files in request")
	}

	type result struct {
		FileName string `json:"file_name"`
		Message  string `json:"message"`
	}
	results := make([]result, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return err
		}
		err = p.writeFile(r.FormValue("dir_path"), fh.Filename, data, fh.Header.Get("Content-Type"), bs, compression, s.now())
		if err != nil {
			return err
		}
		results = append(results, result{FileName: fh.Filename, Message: "uploaded successfully"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"Responses": results})
	return nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, acct *account) error {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return badRequest("download: " + err.Error())
	}
	p, err := openPod(acct, r.FormValue("pod_name"), "download")
	if err != nil {
		return err
	}
	data, f, err := p.readFile(r.FormValue("file_path"), s.now())
	if err != nil {
		return err
	}
	contentType := f.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return nil
}

func (s *Server) handleFileShare(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req fileRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "file share")
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.DestUser) == "" {
		return badRequest("file share: dest_user is required")
	}
	full, _ := cleanPath(req.FilePath)
	f, ok := p.files[full]
	if !ok {
		return notFound("file share: file not found")
	}
	share := &fileShare{
		ref:      newRef(),
		pod:      p.name,
		name:     path.Base(full),
		file:     f,
		sender:   acct.address,
		receiver: req.DestUser,
		sharedAt: s.now(),
	}
	s.fileShares[share.ref] = share
	writeJSON(w, http.StatusOK, map[string]string{"file_sharing_reference": share.ref})
	return nil
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request, acct *account) error {
	var req fileRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	p, err := openPod(acct, req.PodName, "file delete")
	if err != nil {
		return err
	}
	full, _ := cleanPath(req.FilePath)
	if _, ok := p.files[full]; !ok {
		return notFound("file delete: file not found")
	}
	delete(p.files, full)
	writeMessage(w, http.StatusOK, "file deleted successfully")
	return nil
}

func (s *Server) handleFileStat(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	p, err := openPod(acct, q.Get("pod_name"), "file stat")
	if err != nil {
		return err
	}
	full, _ := cleanPath(q.Get("file_path"))
	f, ok := p.files[full]
	if !ok {
		return notFound("file stat: file not found")
	}
	type blockStat struct {
		Name           string `json:"name"`
		Reference      string `json:"reference"`
		Size           string `json:"size"`
		CompressedSize string `json:"compressed_size"`
	}
	blocks := make([]blockStat, 0, len(f.blocks))
	for _, b := range f.blocks {
		blocks = append(blocks, blockStat{
			Name:           b.name,
			Reference:      b.ref,
			Size:           strconv.Itoa(b.size),
			CompressedSize: strconv.Itoa(len(b.data)),
		})
	}
	t := timesOf(f.created, f.modified, f.accessed)
	writeJSON(w, http.StatusOK, map[string]any{
		"pod_name":          p.name,
		"file_path":         path.Dir(full),
		"file_name":         path.Base(full),
		"content_type":      f.contentType,
		"file_size":         strconv.FormatInt(f.size, 10),
		"block_size":        strconv.FormatUint(uint64(f.blockSize), 10),
		"compression":       string(f.compression),
		"creation_time":     t.CreationTime,
		"modification_time": t.ModificationTime,
		"access_time":       t.AccessTime,
		"Blocks":            blocks,
	})
	return nil
}

func (s *Server) handleFileReceive(w http.ResponseWriter, r *http.Request, acct *account) error {
	q := r.URL.Query()
	p, err := openPod(acct, q.Get("pod_name"), "file receive")
	if err != nil {
		return err
	}
	share, ok := s.fileShares[q.Get("sharing_ref")]
	if !ok {
		return notFound("file receive: invalid sharing reference")
	}
	dir, ok := cleanPath(q.Get("dir_path"))
	if !ok {
		return badRequest("file receive: directory path must be absolute")
	}
	if _, ok := p.dirs[dir]; !ok {
		return badRequest("file receive: directory " + dir + " does not exist")
	}
	full := path.Join(dir, share.name)
	if _, ok := p.files[full]; ok {
		return badRequest("file receive: file " + full + " already present")
	}
	now := s.now()
	received := *share.file
	received.blocks = append([]block(nil), share.file.blocks...)
	received.created, received.modified, received.accessed = now, now, now
	p.files[full] = &received
	writeJSON(w, http.StatusOK, map[string]string{"file_name": full})
	return nil
}

func (s *Server) handleFileReceiveInfo(w http.ResponseWriter, r *http.Request, _ *account) error {
	share, ok := s.fileShares[r.URL.Query().Get("sharing_ref")]
	if !ok {
		return notFound("file receiveinfo: invalid sharing reference")
	}
	f := share.file
	writeJSON(w, http.StatusOK, map[string]string{
		"pod_name":         share.pod,
		"name":             share.name,
		"content_type":     f.contentType,
		"size":             strconv.FormatInt(f.size, 10),
		"block_size":       strconv.FormatUint(uint64(f.blockSize), 10),
		"number_of_blocks": strconv.Itoa(len(f.blocks)),
		"compression":      string(f.compression),
		"source_address":   share.sender,
		"dest_address":     share.receiver,
		"shared_time":      dfsapi.FormatUnix(share.sharedAt),
	})
	return nil
}
