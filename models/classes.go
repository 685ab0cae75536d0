// Package models - Class label sets for detector outputs.
package models

import (
	"fmt"
	"strings"
)

// ClassSet maps detector class indices to human-readable labels.
type ClassSet struct {
	// Name identifies the set, e.g. "coco".
	Name string
	// Labels holds the label for each class index.
	Labels []string
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewClassSet creates a class set and builds its name index.
func NewClassSet(name string, labels ...string) *ClassSet {
	s := &ClassSet{Name: name, Labels: labels}
	s.buildNameIndexMap()
	return s
}

// ParseClassSet builds a class set from a comma-separated label list, as
// accepted on the command line. Empty and repeated entries are rejected.
func ParseClassSet(name, list string) (*ClassSet, error) {
	parts := strings.Split(list, ",")
	labels := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("label %d in %q is empty", i, list)
		}
		labels = append(labels, p)
	}
	set := NewClassSet(name, labels...)
	for i, l := range set.Labels {
		if idx, _ := set.Index(l); idx != i {
			return nil, fmt.Errorf("label %q is repeated at %d and %d", l, i, idx)
		}
	}
	return set, nil
}

// knownClassSets are the label sets selectable by name.
var knownClassSets = map[string]*ClassSet{}

// ResolveClassSet returns the built-in set called spec ("coco", "tower_crane"),
// or parses spec as a comma-separated label list.
//
// @example
// classes, err := models.ResolveClassSet("coco")
func ResolveClassSet(spec string) (*ClassSet, error) {
	if set, ok := knownClassSets[strings.ToLower(strings.TrimSpace(spec))]; ok {
		return set, nil
	}
	return ParseClassSet("custom", spec)
}

func (s *ClassSet) buildNameIndexMap() {
	s.nameToIdx = make(map[string]int, len(s.Labels))
	for i, l := range s.Labels {
		s.nameToIdx[l] = i
	}
}

// Len returns the number of classes.
func (s *ClassSet) Len() int {
	return len(s.Labels)
}

// Label returns the label for idx, or "class_<idx>" when idx is out of range.
func (s *ClassSet) Label(idx int) string {
	if s == nil || idx < 0 || idx >= len(s.Labels) {
		return fmt.Sprintf("class_%d", idx)
	}
	return s.Labels[idx]
}

// Index returns the class index for a label.
func (s *ClassSet) Index(label string) (int, error) {
	if s.nameToIdx == nil {
		s.buildNameIndexMap()
	}
	idx, ok := s.nameToIdx[label]
	if !ok {
		return -1, fmt.Errorf("label %q not found in class set %q", label, s.Name)
	}
	return idx, nil
}

// TowerCraneClasses is the single-class set of the tower crane detector.
var TowerCraneClasses = NewClassSet("tower_crane", "tower_crane")

// COCOClasses is the 80-class label set used by YOLO models trained on COCO.
var COCOClasses = NewClassSet("coco",
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
)

func init() {
	for _, set := range []*ClassSet{TowerCraneClasses, COCOClasses} {
		knownClassSets[set.Name] = set
	}
}
