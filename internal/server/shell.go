package server

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// Shell is the single page every tab loads. All content arrives over the
// websocket as view updates; the script only applies them and reports user
// input back as intents.
func Shell(title string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, part := range []string{
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(title), `</title>`,
			`<style>`, shellCSS, `</style></head><body>`,
			`<header><span id="title">`, templ.EscapeString(title), `</span>`,
			`<select id="grouping"><option value="package">By package</option><option value="inheritance">By inheritance</option></select>`,
			`<label><input type="checkbox" id="private"> Private classes</label>`,
			`<input type="search" id="filter" placeholder="Filter members">`,
			`<span id="show">`,
			`<label><input type="checkbox" data-show="public"> Public</label>`,
			`<label><input type="checkbox" data-show="private"> Private</label>`,
			`<label><input type="checkbox" data-show="deprecated"> Deprecated</label>`,
			`<label><input type="checkbox" data-show="internal"> Internal</label></span>`,
			`<button id="expand-all">Expand all</button><button id="collapse-all">Collapse all</button>`,
			`<span id="loading" hidden>Loading&hellip;</span><span id="notice"></span></header>`,
			`<main><nav id="tree"></nav><section id="content"></section></main>`,
			`<script>`, shellJS, `</script></body></html>`,
		} {
			if _, err := io.WriteString(w, part); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Shell(s.cfg.Title).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render shell")
	}
}

const shellCSS = `
body{margin:0;font:14px/1.4 sans-serif}
header{display:flex;gap:.75em;align-items:center;padding:.5em 1em;border-bottom:1px solid #ccc}
#title{font-weight:bold;flex:1}
main{display:flex;height:calc(100vh - 3em)}
#tree{width:22em;overflow:auto;border-right:1px solid #ccc}
#content{flex:1;overflow:auto;padding:0 1em}
.class-tree{list-style:none;padding-left:1em}
.class-tree li.selected>a{font-weight:bold}
.class-tree li.private>a{color:#888}
.member .long{display:none}
.member.open .long{display:block}
.member.highlighted{background:#ffd}
.member.filtered{display:none}
.not-found{padding:2em}
#notice{color:#666}
`

const shellJS = `
(function(){
var content=document.getElementById("content"),tree=document.getElementById("tree");
var grouping=document.getElementById("grouping"),priv=document.getElementById("private");
var filter=document.getElementById("filter"),notice=document.getElementById("notice");
var proto=location.protocol==="https:"?"wss:":"ws:";
var ws,retry=0,unloading=false,noticeTimer;
function send(m){if(ws&&ws.readyState===1){ws.send(JSON.stringify(m));}}
function member(id){return content.querySelector("[id='"+CSS.escape(id)+"']");}
function showBoxes(){return document.querySelectorAll("#show input[data-show]");}
function readShow(){var s={};showBoxes().forEach(function(el){s[el.dataset.show]=el.checked;});return s;}
function writeShow(s){if(!s){return;}showBoxes().forEach(function(el){el.checked=!!s[el.dataset.show];});}
function sendFilter(){send({type:"filter",text:filter.value,show:readShow()});}
function applySettings(s){grouping.value=s.grouping;priv.checked=!!s.showPrivate;filter.value=s.text||"";writeShow(s.show);}
function select(url){tree.querySelectorAll("li.selected").forEach(function(li){li.classList.remove("selected");});
 var a=url&&tree.querySelector("a[href='"+CSS.escape(url)+"']");if(a){a.parentNode.classList.add("selected");}}
var handlers={
 loading:function(u){document.getElementById("loading").hidden=u.content!=="true";},
 title:function(u){document.title=u.content;},
 index:function(u){content.innerHTML=u.content;},
 "class":function(u){content.innerHTML=u.content;},
 notFound:function(u){content.innerHTML=u.content;},
 scroll:function(u){content.scrollTop=parseInt(u.content,10)||0;},
 scrollToMember:function(u){var el=member(u.target);if(el){el.classList.add("highlighted");el.scrollIntoView();}},
 expand:function(u){var el=member(u.target);if(el){el.classList.toggle("open",u.content==="true");}},
 expandAll:function(u){content.querySelectorAll(".member").forEach(function(el){el.classList.toggle("open",u.content==="true");});},
 filter:function(u){var f=JSON.parse(u.content),hidden={};(f.hidden||[]).forEach(function(id){hidden[id]=true;});
  writeShow(f.show);content.querySelectorAll(".member").forEach(function(el){el.classList.toggle("filtered",!!hidden[el.id]);});},
 settings:function(u){applySettings(JSON.parse(u.content));},
 tree:function(u){tree.innerHTML=u.content;select(u.target);},
 select:function(u){select(u.target);},
 open:function(u){window.open(u.target,"_blank");},
 notice:function(u){notice.textContent=u.content;clearTimeout(noticeTimer);noticeTimer=setTimeout(function(){notice.textContent="";},5000);},
 snapshot:function(u){var s=JSON.parse(u.content);document.title=s.title;document.getElementById("loading").hidden=!s.loading;
  content.innerHTML=s.content;tree.innerHTML=s.tree;select(s.selected);content.scrollTop=s.offset;if(s.settings){applySettings(s.settings);}},
 error:function(u){console.warn("docview:",u.content);}
};
function connect(){
 ws=new WebSocket(proto+"//"+location.host+"/ws");
 ws.onopen=function(){retry=0;var h=location.hash;send(h&&h!=="#"?{type:"navigate",url:h}:{type:"index"});};
 ws.onmessage=function(e){var u=JSON.parse(e.data);var h=handlers[u.type];if(h){h(u);}};
 ws.onclose=function(){if(!unloading){retry++;setTimeout(connect,Math.min(retry*1000,10000));}};
}
connect();
document.addEventListener("visibilitychange",function(){if(!document.hidden){send({type:"sync"});}});
document.addEventListener("click",function(e){
 var a=e.target.closest("a");
 if(a){var href=a.getAttribute("href")||"";
  if(href.charAt(0)==="#"){e.preventDefault();history.pushState(null,"",href);send({type:"navigate",url:href,newWindow:e.ctrlKey||e.metaKey});return;}
  if(/^https?:/.test(href)){e.preventDefault();send({type:"navigate",url:href,newWindow:true});return;}}
 var m=e.target.closest(".member");
 if(m&&m.id&&!e.target.closest(".long")){send({type:"toggle",member:m.id,expanded:!m.classList.contains("open")});}
});
window.addEventListener("popstate",function(){send(location.hash?{type:"navigate",url:location.hash}:{type:"index"});});
var scrollTimer;
content.addEventListener("scroll",function(){clearTimeout(scrollTimer);scrollTimer=setTimeout(function(){send({type:"scroll",offset:Math.round(content.scrollTop)});},100);});
filter.addEventListener("input",sendFilter);
showBoxes().forEach(function(el){el.addEventListener("change",sendFilter);});
grouping.addEventListener("change",function(e){send({type:"grouping",grouping:e.target.value});});
priv.addEventListener("change",function(e){send({type:"showPrivate",enabled:e.target.checked});});
document.getElementById("expand-all").addEventListener("click",function(){send({type:"expandAll",expanded:true});});
document.getElementById("collapse-all").addEventListener("click",function(){send({type:"expandAll",expanded:false});});
window.addEventListener("beforeunload",function(){unloading=true;send({type:"closeTab",url:location.hash});});
})();
`
