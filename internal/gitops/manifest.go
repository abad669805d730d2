package gitops

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrContainerNotFound = errors.New("container not found in manifest")
	ErrImageNotSet       = errors.New("container has no image field")
)

// SetContainerImage rewrites the image reference of the named container
// in a Kubernetes manifest. The YAML parser is used only to locate the
// field; the edit itself is a single-line splice, so every other byte
// of the manifest comes back unchanged. Multi-document manifests are
// supported; the first matching container wins.
//
// The returned changed flag is false when the manifest already carries
// newImage, in which case the input is returned as-is.
func SetContainerImage(manifest []byte, containerName, newImage string) (updated []byte, oldImage string, changed bool, err error) {
	imageNode, err := findImageNode(manifest, containerName)
	if err != nil {
		return nil, "", false, err
	}

	oldImage = imageNode.Value
	if oldImage == newImage {
		return manifest, oldImage, false, nil
	}

	// yaml.Node line numbers are 1-based and absolute within the input
	lines := strings.SplitAfter(string(manifest), "\n")
	idx := imageNode.Line - 1
	if idx < 0 || idx >= len(lines) {
		return nil, "", false, fmt.Errorf("image field line %d out of range", imageNode.Line)
	}

	line := lines[idx]
	if !strings.Contains(line, oldImage) {
		return nil, "", false, fmt.Errorf("image value %q not found on line %d", oldImage, imageNode.Line)
	}
	lines[idx] = strings.Replace(line, oldImage, newImage, 1)

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
	}

	return buf.Bytes(), oldImage, true, nil
}

// findImageNode walks every document looking for
// spec.template.spec.containers[name == containerName].image
func findImageNode(manifest []byte, containerName string) (*yaml.Node, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(manifest))
	sawContainer := false

	for {
		var doc yaml.Node
		if err := decoder.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to parse manifest: %w", err)
		}

		root := &doc
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}

		containers := mapLookup(root, "spec", "template", "spec", "containers")
		if containers == nil || containers.Kind != yaml.SequenceNode {
			continue
		}

		for _, container := range containers.Content {
			if container.Kind != yaml.MappingNode {
				continue
			}
			if value(container, "name") != containerName {
				continue
			}
			sawContainer = true
			if image := child(container, "image"); image != nil {
				return image, nil
			}
		}
	}

	if sawContainer {
		return nil, ErrImageNotSet
	}
	return nil, ErrContainerNotFound
}

// mapLookup follows a chain of mapping keys
func mapLookup(node *yaml.Node, keys ...string) *yaml.Node {
	for _, key := range keys {
		node = child(node, key)
		if node == nil {
			return nil
		}
	}
	return node
}

// child returns the value node for a key in a mapping node
func child(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// value returns the scalar value for a key in a mapping node
func value(node *yaml.Node, key string) string {
	if v := child(node, key); v != nil {
		return v.Value
	}
	return ""
}
