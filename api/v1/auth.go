package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/middleware"
)

// TestAuth confirms that the caller presented a valid token.
// @Summary Test authentication
// @Description Returns the authenticated user's identity and granted permissions
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/test [get]
func TestAuth(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "User not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Token accepted",
		"data": gin.H{
			"username":    user.Username,
			"email":       user.Email,
			"name":        user.Name,
			"permissions": user.Permissions,
		},
	})
}

// TestReadAccess confirms that the caller holds the READ scope.
// @Summary Test read access
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/test/read [get]
func TestReadAccess(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Read access granted",
		"data": gin.H{
			"username": user.Username,
		},
	})
}

// TestWriteAccess confirms that the caller holds the WRITE scope.
// @Summary Test write access
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/test/write [get]
func TestWriteAccess(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Write access granted",
		"data": gin.H{
			"username": user.Username,
		},
	})
}

// TestAdminAccess confirms that the caller holds both READ and WRITE scopes.
// @Summary Test combined read and write access
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/test/admin [post]
func TestAdminAccess(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Read and write access granted",
		"data": gin.H{
			"username":    user.Username,
			"permissions": user.Permissions,
		},
	})
}
