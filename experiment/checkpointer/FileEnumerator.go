package checkpointer

import "fmt"

// fileEnumerator produces consecutively numbered filenames.
type fileEnumerator struct {
	i         int
	prefix    string
	extension string
}

func (f *fileEnumerator) filename() string {
	f.i++
	return fmt.Sprintf("%v%v%v", f.prefix, f.i, f.extension)
}

// FilenameEnumerator returns a filename generator with an integer
// counter suffix. The counter starts at start+1 and increments on every
// call. The filename parameter is the full filename with its path and
// the extension parameter determines the file extension.
func FilenameEnumerator(start int, filename, extension string) func() string {
	enum := fileEnumerator{i: start, prefix: filename, extension: extension}

	return enum.filename
}
