package extractor

import (
	"io"
)

// FileInput adapts an io.ReadSeeker (typically *os.File) to Input, keeping
// the peek cursor independent of the read cursor the way the teacher's
// SeekableBuffer keeps its write cursor independent of buffer length.
type FileInput struct {
	r        io.ReadSeeker
	length   int64
	readPos  int64
	peekPos  int64
	peekBuf  []byte
}

// NewFileInput wraps r. length may be -1 if unknown.
func NewFileInput(r io.ReadSeeker, length int64) *FileInput {
	return &FileInput{r: r, length: length}
}

func (f *FileInput) Position() int64 { return f.readPos }
func (f *FileInput) Length() int64   { return f.length }

func (f *FileInput) Read(p []byte) (int, error) {
	f.syncTo(f.readPos)
	n, err := f.r.Read(p)
	f.readPos += int64(n)
	f.peekPos = f.readPos
	return n, err
}

func (f *FileInput) ReadFully(dst []byte) error {
	f.syncTo(f.readPos)
	n, err := io.ReadFull(f.r, dst)
	f.readPos += int64(n)
	f.peekPos = f.readPos
	if err != nil {
		return NewError(KindEof, "read fully", err)
	}
	return nil
}

func (f *FileInput) SkipFully(n int64) error {
	f.syncTo(f.readPos)
	pos, err := f.r.Seek(n, io.SeekCurrent)
	if err != nil {
		return NewError(KindEof, "skip fully", err)
	}
	f.readPos = pos
	f.peekPos = pos
	return nil
}

func (f *FileInput) PeekFully(dst []byte) error {
	f.syncTo(f.peekPos)
	n, err := io.ReadFull(f.r, dst)
	f.peekPos += int64(n)
	// Restore the read cursor: peeking must never move it.
	f.syncTo(f.readPos)
	if err != nil {
		return NewError(KindEof, "peek fully", err)
	}
	return nil
}

func (f *FileInput) AdvancePeekPosition(n int64) error {
	f.peekPos += n
	return nil
}

func (f *FileInput) ResetPeekPosition() {
	f.peekPos = f.readPos
}

func (f *FileInput) SeekTo(position int64) error {
	pos, err := f.r.Seek(position, io.SeekStart)
	if err != nil {
		return NewError(KindEof, "seek to", err)
	}
	f.readPos = pos
	f.peekPos = pos
	return nil
}

// syncTo moves the underlying ReadSeeker's real cursor to want. It queries
// the current offset with Seek(0, SeekCurrent) on every call and issues the
// repositioning Seek only when that offset differs from want.
func (f *FileInput) syncTo(want int64) {
	// *os.File and bytes.Reader both report their current offset via
	// Seek(0, SeekCurrent); avoid the extra call when rarely needed by
	// always reconciling explicitly instead of tracking a third cursor.
	cur, err := f.r.Seek(0, io.SeekCurrent)
	if err == nil && cur == want {
		return
	}
	_, _ = f.r.Seek(want, io.SeekStart)
}
