/*
 * atomicdata.go, part of mdbench.
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

package mdbench

import "strings"

//A map for assigning mass to elements.
//Note that just common "bio-elements" are present
var symbolMass = map[string]float64{
	"H":  1.0,
	"C":  12.01,
	"O":  16.00,
	"N":  14.01,
	"P":  30.97,
	"S":  32.06,
	"Se": 78.96,
	"K":  39.1,
	"Ca": 40.08,
	"Mg": 24.30,
	"Cl": 35.45,
	"Na": 22.99,
	"Cu": 63.55,
	"Zn": 65.38,
	"Co": 58.93,
	"Fe": 55.84,
	"Mn": 54.94,
	"Cr": 51.996,
	"Si": 28.08,
	"Be": 9.012,
	"F":  18.998,
	"Br": 79.904,
	"I":  126.90,
}

// two-letter symbols that GROMACS force fields write as atom names, usually for ions.
var twoLetter = map[string]string{
	"CL": "Cl",
	"NA": "Na",
	"ZN": "Zn",
	"MG": "Mg",
	"CA": "Ca",
	"CU": "Cu",
	"FE": "Fe",
	"MN": "Mn",
	"BR": "Br",
	"SE": "Se",
}

// symbolFromName tries to guess a chemical element symbol from a GROMACS atom name.
// Two-letter elements are only recognized if the name is exactly the symbol
// (i.e. "CA" in a protein is an alpha carbon unless the residue is also "CA").
// It returns the empty string if nothing fits.
func symbolFromName(name, molname string) string {
	name = strings.TrimLeft(name, "0123456789")
	if name == "" {
		return ""
	}
	up := strings.ToUpper(name)
	if s, ok := twoLetter[up]; ok && (up != "CA" || strings.ToUpper(molname) == "CA") {
		return s
	}
	s := up[:1]
	if _, ok := symbolMass[s]; ok {
		return s
	}
	return ""
}
