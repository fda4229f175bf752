/*
 * v3_test.go, part of mdbench.
 *
 * Copyright 2024 The mdbench authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package v3

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewMatrix(Te *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
	A, err := NewMatrix(a)
	if err != nil {
		Te.Fatal(err)
	}
	if A.NVecs() != 3 {
		Te.Errorf("expected 3 vectors, got %d", A.NVecs())
	}
	if v := A.VecView(1).At(0, 2); v != 6 {
		Te.Errorf("expected 6 in vector 1, got %v", v)
	}
	if _, err := NewMatrix([]float64{1, 2}); err == nil {
		Te.Error("expected an error for a slice not divisible by 3")
	}
}

func TestZerosAndVecs(Te *testing.T) {
	Z := Zeros(4)
	Z.SetVec(2, 1.5, -2, 3)
	d := Z.Vecs()
	if len(d) != 12 {
		Te.Fatalf("expected 12 elements, got %d", len(d))
	}
	if d[6] != 1.5 || d[7] != -2 || d[8] != 3 {
		Te.Errorf("SetVec did not write to the backing slice: %v", d[6:9])
	}
	d[0] = 9
	if Z.At(0, 0) != 9 {
		Te.Error("writes to Vecs are not reflected in the matrix")
	}
}

func TestEmpty(Te *testing.T) {
	Z := Zeros(0)
	if Z.NVecs() != 0 {
		Te.Errorf("expected an empty matrix, got %d vectors", Z.NVecs())
	}
	if Z.Vecs() != nil {
		Te.Error("expected a nil backing slice for an empty matrix")
	}
}

func TestDense2Matrix(Te *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			Te.Error("expected a panic for a 2-column matrix")
		}
	}()
	Dense2Matrix(mat.NewDense(2, 2, nil))
}
