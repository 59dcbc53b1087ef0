package main

import (
	"bytes"
	"encoding/binary"
	"testing"

	"mnist-lenet/internal/classifier"
	"mnist-lenet/internal/nn/nntest"
	"mnist-lenet/internal/parser"
)

func archives(t *testing.T, labels []byte) (*parser.ImageSet, *parser.LabelSet) {
	t.Helper()
	var img bytes.Buffer
	binary.Write(&img, binary.BigEndian, [4]uint32{0x803, uint32(len(labels)), 28, 28})
	img.Write(make([]byte, len(labels)*parser.ImageSize))
	images, err := parser.ParseImages(&img)
	if err != nil {
		t.Fatal(err)
	}

	var lbl bytes.Buffer
	binary.Write(&lbl, binary.BigEndian, [2]uint32{0x801, uint32(len(labels))})
	lbl.Write(labels)
	labelSet, err := parser.ParseLabels(&lbl)
	if err != nil {
		t.Fatal(err)
	}
	return images, labelSet
}

func TestCountAccuracy(t *testing.T) {
	model, err := classifier.Open(classifier.BackendReference)
	if err != nil {
		t.Fatal(err)
	}
	defer model.Close()
	if err := model.LoadWeights(nntest.WriteDir(t, nntest.Favor(t, 4, 2))); err != nil {
		t.Fatal(err)
	}

	images, labels := archives(t, []byte{4, 4, 1, 4})
	acc, err := countAccuracy(images, labels, model, 0)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 75 {
		t.Fatalf("accuracy %v want 75", acc)
	}

	acc, err = countAccuracy(images, labels, model, 2)
	if err != nil {
		t.Fatal(err)
	}
	if acc != 100 {
		t.Fatalf("limited accuracy %v want 100", acc)
	}
}

func TestCountAccuracyMismatchedArchives(t *testing.T) {
	images, _ := archives(t, []byte{1, 2})
	_, labels := archives(t, []byte{1})
	if _, err := countAccuracy(images, labels, nil, 0); err == nil {
		t.Fatal("expected error")
	}
}
