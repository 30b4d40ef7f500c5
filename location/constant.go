// Copyright 2015 Felipe A. Cavani. All rights reserved.
// Use of this source code is governed by the Apache License 2.0
// license that can be found in the LICENSE file.

package location

// Constant is a Descriptor whose content is fixed at construction time.
type Constant struct {
	name    string
	content []byte
}

// NewConstant builds a Descriptor serving the given content verbatim.
func NewConstant(name, content string) *Constant {
	return &Constant{name: name, content: []byte(content)}
}

func (c *Constant) Name() string { return c.name }

func (c *Constant) Location(n Resolver, info InterfaceInfo) (string, error) {
	return ResolveLocal(n, info, c.name)
}

func (c *Constant) Content() ([]byte, error) {
	return c.content, nil
}
