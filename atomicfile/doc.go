/*
Package atomicfile replaces a file in a way that never leaves a partially
written destination behind.

Data goes to a temporary file in the destination's directory. Close() syncs
it and renames it over the destination, then syncs the directory. If any
Write() fails, or RemoveIfNotClosed() is called first, the temporary file
is deleted and the destination is left untouched.

	func saveItems(path string, d []byte) error {
		f, err := atomicfile.New(path)
		if err != nil {
			return err
		}
		defer f.RemoveIfNotClosed()
		if _, err = f.Write(d); err != nil {
			return err
		}
		return f.Close()
	}

WriteFile does the above in one call.
*/
package atomicfile
