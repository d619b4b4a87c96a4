// Package nn implements a feed-forward neural network trained with
// resilient backpropagation (RPROP).
//
// A Network is a fixed chain of dense layers. The forward pass stores
// raw pre-activation sums per layer; activations are applied lazily by
// whoever reads them. The backward pass derives per-weight gradients
// analytically and accumulates them over a batch; ApplyGradients then
// runs the RPROP rule, which adapts each weight's step size from
// gradient-sign agreement alone.
//
// Batch training can fan out across goroutines: each worker owns a
// deep clone of the network, accumulates gradients over its chunk, and
// the partial accumulators are merged back in a fixed order before the
// single weight update. The parallel path produces the same weights as
// the sequential one up to floating-point summation order.
package nn
