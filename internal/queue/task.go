package queue

import (
	"errors"
	"fmt"
	"strconv"
)

const TaskThumbnail = "thumbnail"

var ErrUnknownTask = errors.New("unknown task type")

// ThumbnailTask asks a worker to render the thumbnail of one artwork.
type ThumbnailTask struct {
	ArtworkID int64
	FilePath  string
}

func (t ThumbnailTask) values() map[string]any {
	return map[string]any{
		"type":       TaskThumbnail,
		"artwork_id": strconv.FormatInt(t.ArtworkID, 10),
		"file_path":  t.FilePath,
	}
}

// DecodeThumbnailTask reads a task from stream entry values. Redis returns
// every field as a string.
func DecodeThumbnailTask(values map[string]any) (ThumbnailTask, error) {
	if typ, _ := values["type"].(string); typ != TaskThumbnail {
		return ThumbnailTask{}, fmt.Errorf("%w: %q", ErrUnknownTask, typ)
	}

	rawID, _ := values["artwork_id"].(string)
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return ThumbnailTask{}, fmt.Errorf("invalid artwork_id %q", rawID)
	}

	path, _ := values["file_path"].(string)
	if path == "" {
		return ThumbnailTask{}, errors.New("missing file_path")
	}
	return ThumbnailTask{ArtworkID: id, FilePath: path}, nil
}
