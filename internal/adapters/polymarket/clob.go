package polymarket

// clob.go — lectura de top-of-book del CLOB.
//
// El executor live solo necesita el mejor ask (compras) y el mejor bid
// (ventas) de un token, no el book completo.

import (
	"context"
	"fmt"
	"strconv"
)

const bookPath = "/book"

// Book es el top-of-book de un token. Un lado sin liquidez queda en cero.
type Book struct {
	BestBid float64
	BestAsk float64
}

// FetchBook obtiene el top-of-book para un token del CLOB.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (Book, error) {
	url := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, tokenID)

	var resp bookResponse
	if err := c.get(ctx, c.bookLimiter, url, &resp); err != nil {
		return Book{}, fmt.Errorf("polymarket.FetchBook: %w", err)
	}

	// No asumimos orden en los niveles: escaneamos ambos lados.
	var book Book
	for _, e := range resp.Bids {
		if p := parseLevel(e); p > book.BestBid {
			book.BestBid = p
		}
	}
	for _, e := range resp.Asks {
		if p := parseLevel(e); p > 0 && (book.BestAsk == 0 || p < book.BestAsk) {
			book.BestAsk = p
		}
	}
	return book, nil
}

func parseLevel(e bookEntryRaw) float64 {
	price, err := strconv.ParseFloat(e.Price, 64)
	if err != nil || price <= 0 || price >= 1 {
		return 0
	}
	return price
}
