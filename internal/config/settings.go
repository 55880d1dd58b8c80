package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/handiism/cloudlibrary-downloader/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Library is the library name as used in the CloudLibrary URL.
	Library string `json:"library"`

	// LibraryRoot is the directory one folder per book is created under.
	LibraryRoot string `json:"library_root"`

	// MaxConcurrentChapterDownloads bounds how many chapter files are
	// fetched at once. The default of 1 keeps downloads strictly
	// sequential in playlist order.
	MaxConcurrentChapterDownloads int `json:"max_concurrent_chapter_downloads"`

	// Behavior toggles
	DumpJSON            bool `json:"dump_json"`
	ReturnAfterDownload bool `json:"return_after_download"`

	// Tag settings
	ModifyTags      bool `json:"modify_tags"`
	SaveCoverInTags bool `json:"save_cover_in_tags"`

	// Cover art settings
	SaveCoverInFolder bool `json:"save_cover_in_folder"`
	CoverMaxSize      int  `json:"cover_max_size"`
	ConvertCoverToJPG bool `json:"convert_cover_to_jpg"`

	// Playlist settings
	CreatePlaylist bool `json:"create_playlist"`
	M3UExtended    bool `json:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		LibraryRoot:                   "audiobooks",
		MaxConcurrentChapterDownloads: 1,

		DumpJSON:            false,
		ReturnAfterDownload: false,

		ModifyTags:      true,
		SaveCoverInTags: true,

		SaveCoverInFolder: false,
		CoverMaxSize:      1000,
		ConvertCoverToJPG: true,

		CreatePlaylist: false,
		M3UExtended:    true,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ToPathConfig converts settings to a model.PathConfig.
func (s *Settings) ToPathConfig() *model.PathConfig {
	return &model.PathConfig{
		LibraryRoot: s.LibraryRoot,
	}
}
