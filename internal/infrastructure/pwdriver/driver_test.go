package pwdriver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/spinbook/internal/domain/ui"
)

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "xpath=//button[text()='Book Now']", locatorString(ui.MustSelector("//button[text()='Book Now']")))
	assert.Equal(t, "css=#seat-3", locatorString(ui.MustSelector("#seat-3")))
}

func TestVisibleLocatorString(t *testing.T) {
	assert.Equal(t, "xpath=//*[text()='Bike 3'] >> visible=true", visibleLocatorString(ui.MustSelector("//*[text()='Bike 3']")))
}

func TestMs(t *testing.T) {
	assert.Equal(t, 1500.0, ms(1500*time.Millisecond))
	assert.Equal(t, 10000.0, ms(actionTimeout))
}
