// Package raster loads elevation rasters through GDAL.
package raster

import (
	"fmt"

	"github.com/lukeroth/gdal"

	"demclean/internal/dem"
)

// Info describes a raster without reading its samples
type Info struct {
	Path         string
	Width        int
	Height       int
	Bands        int
	GeoTransform [6]float64
	NoData       float64
	HasNoData    bool
}

// Stat opens the raster and reads its dimensions, geotransform and the
// nodata value of band 1
func Stat(path string) (Info, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open DEM file %s: %w", path, err)
	}
	defer ds.Close()
	return info(path, ds)
}

func info(path string, ds gdal.Dataset) (Info, error) {
	if ds.RasterCount() < 1 {
		return Info{}, fmt.Errorf("DEM file %s has no raster bands", path)
	}
	band := ds.RasterBand(1)
	noData, hasNoData := band.NoDataValue()
	return Info{
		Path:         path,
		Width:        ds.RasterXSize(),
		Height:       ds.RasterYSize(),
		Bands:        ds.RasterCount(),
		GeoTransform: ds.GeoTransform(),
		NoData:       noData,
		HasNoData:    hasNoData,
	}, nil
}

// LoadGrid reads band 1 of a GeoTIFF (or anything else GDAL can open) into
// a grid of float64 samples
func LoadGrid(path string) (dem.Grid, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return dem.Grid{}, fmt.Errorf("failed to open DEM file %s: %w", path, err)
	}
	defer ds.Close()

	meta, err := info(path, ds)
	if err != nil {
		return dem.Grid{}, err
	}

	heights := make([]float64, meta.Width*meta.Height)
	band := ds.RasterBand(1)
	if err := band.IO(gdal.Read, 0, 0, meta.Width, meta.Height, heights, meta.Width, meta.Height, 0, 0); err != nil {
		return dem.Grid{}, fmt.Errorf("failed to read elevation data from %s: %w", path, err)
	}

	g := dem.Grid{
		Width:        meta.Width,
		Height:       meta.Height,
		Heights:      heights,
		GeoTransform: meta.GeoTransform,
		NoData:       meta.NoData,
		HasNoData:    meta.HasNoData,
	}
	if err := g.Validate(); err != nil {
		return dem.Grid{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
