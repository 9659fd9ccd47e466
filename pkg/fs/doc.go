// Package fs exposes the directory and file endpoints of a FairOS-dfs pod.
//
// Files are stored by the server in blocks of a chosen size, optionally
// compressed. Upload and Download stream through io.Reader and io.Writer;
// UploadFile and DownloadFile go through an afero.Fs, which defaults to the
// operating system filesystem and can be swapped with WithFs.
//
// Directory and file timestamps are second resolution and returned in UTC.
package fs
