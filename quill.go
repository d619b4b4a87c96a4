// Copyright 2026 The Quill Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package quill is the public surface of the Quill neural network
// engine: dense feed-forward networks trained with resilient
// backpropagation (RPROP).
//
// Example:
//
//	net := quill.New(2, []quill.LayerSpec{
//	    {Size: 4, Transfer: quill.Tanh},
//	    {Size: 1, Transfer: quill.Sigmoid},
//	})
//	net.TrainBatch(samples)
//	out := net.Feedforward([]float64{0.2, 0.7})
package quill

import "github.com/quill-ml/quill/internal/nn"

// Network is a non-empty chain of dense layers.
type Network = nn.Network

// Sample pairs an input vector with its expected output vector.
type Sample = nn.Sample

// LayerSpec declares one layer of a network under construction.
type LayerSpec = nn.LayerSpec

// TransferFunction selects a layer's activation.
type TransferFunction = nn.TransferFunction

// Available transfer functions.
const (
	Identity  = nn.Identity
	ReLU      = nn.ReLU
	LeakyReLU = nn.LeakyReLU
	Tanh      = nn.Tanh
	Sigmoid   = nn.Sigmoid
	Sigmoid2  = nn.Sigmoid2
)

// ErrMalformedModel marks persisted model bytes that cannot be decoded
// into a consistent network.
var ErrMalformedModel = nn.ErrMalformedModel

// New builds a freshly initialized network. It panics when specs is
// empty; an empty layer list is a construction contract violation, not
// a recoverable error.
func New(inputs int, specs []LayerSpec) *Network {
	return nn.New(inputs, specs)
}

// Load restores a network saved with Network.Save.
func Load(path string) (*Network, error) {
	return nn.Load(path)
}
