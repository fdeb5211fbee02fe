//go:build !(linux || darwin)

package kernel

import (
	"errors"

	"github.com/sivogel/hydpy-sub000/internal/model"
)

// Native is unavailable on platforms without dlopen support; the GoKernel
// realization covers them.
type Native struct{}

func OpenNative(path string, d *model.Descriptor) (*Native, error) {
	return nil, errors.New("kernel: native loading not supported on this platform")
}

func (n *Native) Path() string                             { return "" }
func (n *Native) Symbol(name string) (uintptr, error)      { return 0, errors.New("kernel: not loaded") }
func (n *Native) SetValue(string, float64) error           { return errors.New("kernel: not loaded") }
func (n *Native) GetValue(string) (float64, error)         { return 0, errors.New("kernel: not loaded") }
func (n *Native) Call(string) error                        { return errors.New("kernel: not loaded") }
func (n *Native) RunMethods()                              {}
func (n *Native) SnapshotStates()                          {}
func (n *Native) RestoreStates()                           {}
func (n *Native) SetUseRelError(bool)                      {}
func (n *Native) CalcSingleTerms()                         {}
func (n *Native) CalcFullTerms()                           {}
func (n *Native) SetPointStates(int)                       {}
func (n *Native) GetPointStates(int)                       {}
func (n *Native) SetResultStates(int)                      {}
func (n *Native) SetPointFluxes(int)                       {}
func (n *Native) SetResultFluxes(int)                      {}
func (n *Native) IntegrateFluxes([]float64, float64)       {}
func (n *Native) ResetSumFluxes()                          {}
func (n *Native) AddUpFluxes()                             {}
func (n *Native) CalculateError(int) (abs, rel float64)    { return 0, 0 }
