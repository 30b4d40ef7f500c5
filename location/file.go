// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package location

import (
	"os"

	"github.com/fcavani/e"
)

// File is a Descriptor resolving its content from the filesystem. It
// mirrors the original implementation's classpath-then-file fallback by
// trying "<path>" and then "res/<path>" before giving up, since a Go
// module has no classpath equivalent but frequently ships description
// files under a "res/" directory next to the binary.
type File struct {
	name string
	path string
}

// NewFile builds a Descriptor resolving name (and path, for content) from
// the filesystem. If path is empty, name is used for both.
func NewFile(name, path string) *File {
	if path == "" {
		path = name
	}
	return &File{name: name, path: path}
}

func (f *File) Name() string { return f.name }

func (f *File) Location(n Resolver, info InterfaceInfo) (string, error) {
	return ResolveLocal(n, info, f.name)
}

func (f *File) Content() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err == nil {
		return data, nil
	}
	data, err2 := os.ReadFile("res/" + f.path)
	if err2 == nil {
		return data, nil
	}
	return nil, e.Push(err, "cannot read location file "+f.path)
}
