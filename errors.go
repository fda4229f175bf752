/*
 * errors.go, part of mdbench.
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

import (
	"errors"
	"fmt"
	"io/fs"
)

// CError is the error type returned by the functions in this package
// (the C is for "chem", as in goChem). It implements TrajError.
type CError struct {
	msg      string
	filename string
	format   string
	deco     []string
	critical bool
	err      error
}

// Error returns a string with an error message.
func (err CError) Error() string {
	if err.filename == "" {
		return err.msg
	}
	return fmt.Sprintf("%s file %s error: %s", err.format, err.filename, err.msg)
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err CError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical returns true if the error is critical, false otherwise
func (err CError) Critical() bool { return err.critical }

// FileName returns the file to which the failing operation was associated
func (err CError) FileName() string { return err.filename }

// Format returns the format of the file associated to the error
func (err CError) Format() string { return err.format }

// Unwrap returns the underlying error, if any.
func (err CError) Unwrap() error { return err.err }

// errDecorate adds the caller to the decorations of err if err
// implements Error. Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case CError:
		e.deco = e.Decorate(caller)
		return e
	case Error:
		e.Decorate(caller)
	}
	return err
}

// IsFormatError returns true if err comes from a file that could be opened
// but not understood: a critical trajectory or topology error that is not
// due to a missing or unreadable file.
func IsFormatError(err error) bool {
	var pe *fs.PathError
	if err == nil || errors.As(err, &pe) {
		return false
	}
	var te interface {
		Critical() bool
		Format() string
	}
	return errors.As(err, &te) && te.Critical()
}

// IsLastFrame returns true if err only signals the normal end of a trajectory.
func IsLastFrame(err error) bool {
	var lf LastFrameError
	return errors.As(err, &lf)
}
