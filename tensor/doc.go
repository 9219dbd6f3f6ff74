// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the tensor value, shape and dtype types used by the
// segmentgrad engine and its operators.
//
// # Basic Usage
//
//	import "github.com/born-ml/segmentgrad/tensor"
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
//	idx := tensor.Scalar[int32](1, tensor.CPU)
//
// Operators also accept Go literals (nested rectangular slices or scalars),
// which are converted with [ConvertAny].
package tensor
