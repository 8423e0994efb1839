package manager

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recorder struct{ events []string }

type fakeResource struct {
	name string
	rec  *recorder
}

func (r *fakeResource) MustOpen() { r.rec.events = append(r.rec.events, "open:"+r.name) }
func (r *fakeResource) Close()    { r.rec.events = append(r.rec.events, "close:"+r.name) }

type fakeResourcePlugin struct{ res *fakeResource }

func (p *fakeResourcePlugin) Name() string                 { return p.res.name }
func (p *fakeResourcePlugin) MustCreateResource() Resource { return p.res }

type fakeComponent struct {
	name string
	rec  *recorder
}

func (c *fakeComponent) Start() error    { c.rec.events = append(c.rec.events, "start:"+c.name); return nil }
func (c *fakeComponent) Stop() error     { c.rec.events = append(c.rec.events, "stop:"+c.name); return nil }
func (c *fakeComponent) GetName() string { return c.name }

type fakeComponentPlugin struct{ c *fakeComponent }

func (p *fakeComponentPlugin) Name() string                                { return p.c.name }
func (p *fakeComponentPlugin) MustCreateComponent(*Dependencies) Component { return p.c }

type pingController struct{}

func (pingController) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

type pingPlugin struct{}

func (pingPlugin) Name() string                     { return "ping" }
func (pingPlugin) MustCreateController() Controller { return pingController{} }

func TestLifecycleOrder(t *testing.T) {
	reset()
	t.Cleanup(reset)
	rec := &recorder{}

	RegisterResourcePlugin(&fakeResourcePlugin{res: &fakeResource{name: "db", rec: rec}})
	RegisterResourcePlugin(&fakeResourcePlugin{res: &fakeResource{name: "redis", rec: rec}})
	RegisterComponentPlugin(&fakeComponentPlugin{c: &fakeComponent{name: "worker", rec: rec}})

	MustInitResources()
	MustInitComponents(&Dependencies{})
	Shutdown()
	CloseResources()

	assert.Equal(t, []string{"open:db", "open:redis", "start:worker", "stop:worker", "close:redis", "close:db"}, rec.events)
}

func TestDuplicatePluginPanics(t *testing.T) {
	reset()
	t.Cleanup(reset)
	rec := &recorder{}
	RegisterResourcePlugin(&fakeResourcePlugin{res: &fakeResource{name: "db", rec: rec}})
	assert.Panics(t, func() {
		RegisterResourcePlugin(&fakeResourcePlugin{res: &fakeResource{name: "db", rec: rec}})
	})
}

func TestRegisterAllRoutes(t *testing.T) {
	reset()
	t.Cleanup(reset)
	gin.SetMode(gin.TestMode)

	RegisterControllerPlugin(pingPlugin{})
	engine := gin.New()
	RegisterAllRoutes(engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
