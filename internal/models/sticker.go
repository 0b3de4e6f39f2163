package models

// Sticker: отдельный стикер в наборе.
type Sticker struct {
	ID       string `json:"id" yaml:"id"`
	ImageURL string `json:"imageUrl" yaml:"image_url"`
}

// StickerGroup: набор (пак) стикеров, отображается вкладкой во всплывающем окне.
type StickerGroup struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Thumbnail string    `json:"thumbnail" yaml:"thumbnail"`
	Stickers  []Sticker `json:"stickers" yaml:"stickers"`
}
