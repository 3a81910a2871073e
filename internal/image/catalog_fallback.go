//go:build !linux && !darwin && !windows

package image

type systemCatalog struct{}

func (systemCatalog) Images() ([]Image, error) { return nil, ErrUnsupported }

func (systemCatalog) Exports(Image) ([]Export, error) { return nil, ErrUnsupported }

func (systemCatalog) ImportSlot(Image, string) (uintptr, error) { return 0, ErrUnsupported }
